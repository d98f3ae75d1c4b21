// Package events provides event types and utilities for the HaloLight event system.
package events

// Event types for client session state
const (
	SessionChanged         = "session.changed"
	SessionLoggedIn        = "session.logged_in"
	SessionLoggedOut       = "session.logged_out"
	SessionAccountSwitched = "session.account_switched"
	SessionTokenRefreshed  = "session.token_refreshed"
)

// Event types for UI preference state
const (
	UIChanged           = "ui.changed"
	UIThemeChanged      = "ui.theme_changed"
	UINotificationAdded = "ui.notification_added"
)

// Event types for the tab strip
const (
	TabsChanged = "tabs.changed"
)

// Event types for identity records
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
	RoleUpdated = "role.updated"
)

// BuildSessionSubject creates a session event subject scoped to one client namespace.
func BuildSessionSubject(namespace string) string {
	return SessionChanged + "." + namespace
}

// BuildSessionWildcardSubject creates a wildcard subscription for all session change events.
func BuildSessionWildcardSubject() string {
	return SessionChanged + ".*"
}

// BuildUISubject creates a UI state event subject scoped to one client namespace.
func BuildUISubject(namespace string) string {
	return UIChanged + "." + namespace
}

// BuildUIWildcardSubject creates a wildcard subscription for all UI change events.
func BuildUIWildcardSubject() string {
	return UIChanged + ".*"
}

// BuildTabsSubject creates a tab strip event subject scoped to one client namespace.
func BuildTabsSubject(namespace string) string {
	return TabsChanged + "." + namespace
}

// BuildTabsWildcardSubject creates a wildcard subscription for all tab strip events.
func BuildTabsWildcardSubject() string {
	return TabsChanged + ".*"
}
