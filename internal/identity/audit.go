package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events/bus"
)

// auditQueue is the queue group name. Running several server instances
// against NATS, exactly one of them records each identity event.
const auditQueue = "identity-audit"

// defaultAuditCapacity bounds the in-memory trail.
const defaultAuditCapacity = 256

// AuditEntry is one recorded identity event.
type AuditEntry struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Auditor keeps a bounded trail of user and role changes. It consumes the
// identity subjects through a queue subscription so the trail is recorded
// once per event across a group of server instances.
type Auditor struct {
	log *logger.Logger

	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool

	subscriptions []bus.Subscription
}

// NewAuditor subscribes to the user.* and role.* subjects and starts
// recording.
func NewAuditor(eventBus bus.EventBus, log *logger.Logger) (*Auditor, error) {
	a := &Auditor{
		log:     log.WithFields(zap.String("component", "identity-audit")),
		entries: make([]AuditEntry, defaultAuditCapacity),
	}

	for _, subject := range []string{"user.*", "role.*"} {
		sub, err := eventBus.QueueSubscribe(subject, auditQueue, a.record)
		if err != nil {
			for _, s := range a.subscriptions {
				_ = s.Unsubscribe()
			}
			return nil, err
		}
		a.subscriptions = append(a.subscriptions, sub)
	}
	return a, nil
}

func (a *Auditor) record(ctx context.Context, event *bus.Event) error {
	entry := AuditEntry{
		ID:         event.ID,
		Type:       event.Type,
		Source:     event.Source,
		OccurredAt: event.Timestamp,
		Data:       event.Data,
	}

	a.mu.Lock()
	a.entries[a.next] = entry
	a.next++
	if a.next == len(a.entries) {
		a.next = 0
		a.full = true
	}
	a.mu.Unlock()

	a.log.Debug("Recorded identity event", zap.String("event_type", event.Type))
	return nil
}

// Recent returns up to limit recorded entries, newest first. A non-positive
// limit returns the whole trail.
func (a *Auditor) Recent(limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	size := a.next
	if a.full {
		size = len(a.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + len(a.entries)) % len(a.entries)
		out = append(out, a.entries[idx])
	}
	return out
}

// Close drops the subscriptions. Recorded entries stay readable.
func (a *Auditor) Close() {
	for _, sub := range a.subscriptions {
		_ = sub.Unsubscribe()
	}
}
