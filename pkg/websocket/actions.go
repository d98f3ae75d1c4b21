package websocket

// Actions a client may invoke over the gateway.
const (
	ActionAuthLogin         = "auth.login"
	ActionAuthLogout        = "auth.logout"
	ActionAuthSwitchAccount = "auth.switch_account"
	ActionAuthRefresh       = "auth.refresh"

	ActionUISetTheme       = "ui.set_theme"
	ActionUIToggleTheme    = "ui.toggle_theme"
	ActionUIToggleSidebar  = "ui.toggle_sidebar"
	ActionUISetBreadcrumbs = "ui.set_breadcrumbs"
	ActionUISetScheme      = "ui.set_scheme" // client reports its OS color scheme
	ActionUINotify         = "ui.notify"
	ActionUIDismiss        = "ui.dismiss"

	ActionTabsAdd       = "tabs.add"
	ActionTabsActivate  = "tabs.activate"
	ActionTabsRemove    = "tabs.remove"
	ActionTabsUpdate    = "tabs.update"
	ActionTabsClear     = "tabs.clear"
	ActionTabsSyncRoute = "tabs.sync_route"

	ActionStateSnapshot = "state.snapshot" // full bundle snapshot on demand
)

// Events pushed to clients when a store commits a mutation.
const (
	EventSessionChanged = "session.changed"
	EventUIChanged      = "ui.changed"
	EventTabsChanged    = "tabs.changed"
)

// Error codes returned on TypeError frames.
const (
	ErrCodeBadPayload    = "BAD_PAYLOAD"
	ErrCodeUnknownAction = "UNKNOWN_ACTION"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)
