package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	apperrors "github.com/halolight/halolight/internal/common/errors"
)

// HandlerFunc executes one action. The returned value becomes the result
// payload; a returned error becomes a TypeError frame.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Dispatcher routes action frames to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to an action name, replacing any previous one.
func (d *Dispatcher) Register(action string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = fn
}

// Dispatch executes the action in msg and returns the response frame. It
// never returns nil: unknown actions and handler failures produce TypeError
// frames.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) *Message {
	if msg.Type == TypePing {
		return NewPong(msg.ID)
	}

	d.mu.RLock()
	fn, ok := d.handlers[msg.Action]
	d.mu.RUnlock()
	if !ok {
		return NewError(msg.ID, msg.Action, ErrCodeUnknownAction, "unknown action: "+msg.Action)
	}

	data, err := fn(ctx, msg.Payload)
	if err != nil {
		code, text := translateError(err)
		return NewError(msg.ID, msg.Action, code, text)
	}

	result, err := NewResult(msg.ID, msg.Action, data)
	if err != nil {
		return NewError(msg.ID, msg.Action, ErrCodeInternal, "failed to encode result")
	}
	return result
}

// translateError maps application errors to wire error codes. Internal
// details never cross the wire.
func translateError(err error) (string, string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrCodeUnauthorized, apperrors.ErrCodeForbidden:
			return ErrCodeUnauthorized, appErr.Message
		case apperrors.ErrCodeNotFound:
			return ErrCodeNotFound, appErr.Message
		case apperrors.ErrCodeConflict:
			return ErrCodeConflict, appErr.Message
		case apperrors.ErrCodeBadRequest, apperrors.ErrCodeValidationError:
			return ErrCodeBadPayload, appErr.Message
		}
	}
	return ErrCodeInternal, "internal error"
}
