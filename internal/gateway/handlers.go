package gateway

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/session"
	"github.com/halolight/halolight/internal/state"
	"github.com/halolight/halolight/internal/tabs"
	"github.com/halolight/halolight/internal/uistate"
	wsproto "github.com/halolight/halolight/pkg/websocket"
)

// snapshot is the full-bundle view returned by state.snapshot.
type snapshot struct {
	Session session.State `json:"session"`
	UI      uistate.State `json:"ui"`
	Tabs    tabs.State    `json:"tabs"`
}

func decode(payload json.RawMessage, dest interface{}) error {
	if len(payload) == 0 {
		return apperrors.BadRequest("payload is required")
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return apperrors.BadRequest("malformed payload")
	}
	return nil
}

// newBundleDispatcher binds every gateway action to one client's bundle.
func newBundleDispatcher(b *state.Bundle) *wsproto.Dispatcher {
	d := wsproto.NewDispatcher()

	d.Register(wsproto.ActionStateSnapshot, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return snapshot{Session: b.Session.State(), UI: b.UI.State(), Tabs: b.Tabs.State()}, nil
	})

	d.Register(wsproto.ActionAuthLogin, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var creds identity.Credentials
		if err := decode(payload, &creds); err != nil {
			return nil, err
		}
		if err := b.Session.Login(ctx, creds); err != nil {
			if errors.Is(err, session.ErrLoginSuperseded) {
				return nil, apperrors.Conflict("a newer login attempt took precedence")
			}
			return nil, err
		}
		return b.Session.State(), nil
	})

	d.Register(wsproto.ActionAuthLogout, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		b.Session.Logout(ctx)
		return b.Session.State(), nil
	})

	d.Register(wsproto.ActionAuthSwitchAccount, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			AccountID string `json:"accountId"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := b.Session.SwitchAccount(ctx, req.AccountID); err != nil {
			return nil, err
		}
		return b.Session.State(), nil
	})

	d.Register(wsproto.ActionAuthRefresh, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		if err := b.Session.RefreshToken(ctx); err != nil {
			return nil, err
		}
		return b.Session.State(), nil
	})

	d.Register(wsproto.ActionUISetTheme, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			Theme string `json:"theme"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := b.UI.SetTheme(ctx, uistate.Theme(req.Theme)); err != nil {
			return nil, err
		}
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionUIToggleTheme, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		b.UI.ToggleTheme(ctx)
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionUIToggleSidebar, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		b.UI.ToggleSidebar(ctx)
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionUISetBreadcrumbs, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			Breadcrumbs []uistate.Breadcrumb `json:"breadcrumbs"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		b.UI.SetBreadcrumbs(ctx, req.Breadcrumbs)
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionUISetScheme, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			Scheme string `json:"scheme"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		switch uistate.Scheme(req.Scheme) {
		case uistate.SchemeLight, uistate.SchemeDark:
			b.Scheme.Set(uistate.Scheme(req.Scheme))
		default:
			return nil, apperrors.BadRequest("scheme must be one of: light, dark")
		}
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionUINotify, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var n uistate.Notification
		if err := decode(payload, &n); err != nil {
			return nil, err
		}
		id := b.UI.AddNotification(ctx, n)
		return map[string]string{"id": id}, nil
	})

	d.Register(wsproto.ActionUIDismiss, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			ID  string `json:"id"`
			All bool   `json:"all"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.All {
			b.UI.ClearNotifications(ctx)
		} else {
			b.UI.RemoveNotification(ctx, req.ID)
		}
		return b.UI.State(), nil
	})

	d.Register(wsproto.ActionTabsAdd, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			Title string `json:"title"`
			Path  string `json:"path"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.Path == "" {
			return nil, apperrors.ValidationError("path", "must not be empty")
		}
		id := b.Tabs.AddTab(ctx, req.Title, req.Path)
		return map[string]string{"id": id}, nil
	})

	d.Register(wsproto.ActionTabsActivate, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		b.Tabs.SetActiveTab(ctx, req.ID)
		return b.Tabs.State(), nil
	})

	d.Register(wsproto.ActionTabsRemove, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		b.Tabs.RemoveTab(ctx, req.ID)
		return b.Tabs.State(), nil
	})

	d.Register(wsproto.ActionTabsUpdate, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			ID    string        `json:"id"`
			Patch tabs.TabPatch `json:"patch"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		b.Tabs.UpdateTab(ctx, req.ID, req.Patch)
		return b.Tabs.State(), nil
	})

	d.Register(wsproto.ActionTabsClear, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		b.Tabs.ClearTabs(ctx)
		return b.Tabs.State(), nil
	})

	d.Register(wsproto.ActionTabsSyncRoute, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req struct {
			Path string `json:"path"`
		}
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.Path == "" {
			return nil, apperrors.ValidationError("path", "must not be empty")
		}
		id := b.Tabs.SyncRoute(ctx, req.Path)
		return map[string]string{"id": id}, nil
	})

	return d
}
