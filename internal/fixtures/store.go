package fixtures

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/halolight/halolight/internal/common/config"
	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
)

// dataset is the mutable canned data behind the REST surface.
type dataset struct {
	stats         DashboardStats
	activities    []Activity
	events        []CalendarEvent
	documents     []Document
	files         []FileEntry
	notices       []Notice
	conversations []Conversation
	messages      []Message
	settings      Settings
	profile       Profile
}

// Store serves and mutates the canned data. All access is mutex-guarded;
// mutations live only until the process restarts.
type Store struct {
	mu   sync.Mutex
	data *dataset
	log  *logger.Logger
}

// NewStore generates the dataset from the configured seed and applies the
// optional YAML seed file on top.
func NewStore(cfg config.FixturesConfig, log *logger.Logger) (*Store, error) {
	s := &Store{
		data: generate(cfg.Seed, time.Now().UTC()),
		log:  log.WithFields(zap.String("component", "fixtures")),
	}

	if cfg.SeedFile != "" {
		if err := s.applySeedFile(cfg.SeedFile); err != nil {
			return nil, err
		}
		s.log.Info("Applied fixture seed file", zap.String("path", cfg.SeedFile))
	}
	return s, nil
}

func (s *Store) applySeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	if seed.Stats != nil {
		s.data.stats = *seed.Stats
	}
	if seed.Activities != nil {
		s.data.activities = seed.Activities
	}
	if seed.Events != nil {
		s.data.events = seed.Events
	}
	if seed.Documents != nil {
		s.data.documents = seed.Documents
	}
	if seed.Files != nil {
		s.data.files = seed.Files
	}
	if seed.Notices != nil {
		s.data.notices = seed.Notices
	}
	if seed.Conversations != nil {
		s.data.conversations = seed.Conversations
	}
	if seed.Messages != nil {
		s.data.messages = seed.Messages
	}
	if seed.Settings != nil {
		s.data.settings = *seed.Settings
	}
	if seed.Profile != nil {
		s.data.profile = *seed.Profile
	}
	return nil
}

// page slices a list for 1-based page numbers, clamping out-of-range pages
// to an empty slice.
func page[T any](items []T, pageNum, pageSize int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[start:end]...)
}

// Stats returns the dashboard headline figures.
func (s *Store) Stats() DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.stats
}

// Activities returns a page of the activity feed, newest first.
func (s *Store) Activities(pageNum, pageSize int) ([]Activity, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]Activity(nil), s.data.activities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	return page(sorted, pageNum, pageSize), len(sorted)
}

// ListEvents returns calendar events overlapping [from, to); zero bounds
// return everything.
func (s *Store) ListEvents(from, to time.Time) []CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []CalendarEvent{}
	for _, ev := range s.data.events {
		if !from.IsZero() && !ev.End.After(from) {
			continue
		}
		if !to.IsZero() && !ev.Start.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// CreateEvent adds a calendar event, assigning its id.
func (s *Store) CreateEvent(ev CalendarEvent) (CalendarEvent, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return CalendarEvent{}, apperrors.ValidationError("title", "must not be empty")
	}
	if !ev.End.After(ev.Start) {
		return CalendarEvent{}, apperrors.ValidationError("end", "must be after start")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = uuid.NewString()
	s.data.events = append(s.data.events, ev)
	return ev, nil
}

// UpdateEvent replaces an event's fields, keeping its id.
func (s *Store) UpdateEvent(id string, ev CalendarEvent) (CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.events {
		if s.data.events[i].ID == id {
			ev.ID = id
			s.data.events[i] = ev
			return ev, nil
		}
	}
	return CalendarEvent{}, apperrors.NotFound("event", id)
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.events {
		if s.data.events[i].ID == id {
			s.data.events = append(s.data.events[:i], s.data.events[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("event", id)
}

// ListDocuments returns a page of documents matching the search, newest first.
func (s *Store) ListDocuments(search string, pageNum, pageSize int) ([]Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []Document{}
	needle := strings.ToLower(strings.TrimSpace(search))
	for _, doc := range s.data.documents {
		if needle == "" || strings.Contains(strings.ToLower(doc.Name), needle) {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })
	return page(matched, pageNum, pageSize), len(matched)
}

// CreateDocument adds a document, assigning id and timestamp.
func (s *Store) CreateDocument(doc Document) (Document, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return Document{}, apperrors.ValidationError("name", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = uuid.NewString()
	doc.UpdatedAt = time.Now().UTC()
	s.data.documents = append(s.data.documents, doc)
	return doc, nil
}

// UpdateDocument replaces a document's fields, keeping its id.
func (s *Store) UpdateDocument(id string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.documents {
		if s.data.documents[i].ID == id {
			doc.ID = id
			doc.UpdatedAt = time.Now().UTC()
			s.data.documents[i] = doc
			return doc, nil
		}
	}
	return Document{}, apperrors.NotFound("document", id)
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.documents {
		if s.data.documents[i].ID == id {
			s.data.documents = append(s.data.documents[:i], s.data.documents[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("document", id)
}

// ListFiles returns a page of the file browser entries under a path prefix;
// an empty prefix lists everything. Folders sort before files.
func (s *Store) ListFiles(pathPrefix string, pageNum, pageSize int) ([]FileEntry, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []FileEntry{}
	for _, f := range s.data.files {
		if pathPrefix == "" || strings.HasPrefix(f.Path, pathPrefix) {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Kind != matched[j].Kind {
			return matched[i].Kind == "folder"
		}
		return matched[i].Name < matched[j].Name
	})
	return page(matched, pageNum, pageSize), len(matched)
}

// CreateFile adds a file browser entry, assigning id and timestamp. Kind must
// be "file" or "folder"; an empty path places the entry at the root.
func (s *Store) CreateFile(entry FileEntry) (FileEntry, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return FileEntry{}, apperrors.ValidationError("name", "must not be empty")
	}
	if entry.Kind != "file" && entry.Kind != "folder" {
		return FileEntry{}, apperrors.ValidationError("kind", "must be \"file\" or \"folder\"")
	}
	if entry.Path == "" {
		entry.Path = "/" + entry.Name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.UpdatedAt = time.Now().UTC()
	s.data.files = append(s.data.files, entry)
	return entry, nil
}

// UpdateFile renames or moves an entry, keeping its id and kind.
func (s *Store) UpdateFile(id string, entry FileEntry) (FileEntry, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return FileEntry{}, apperrors.ValidationError("name", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.files {
		if s.data.files[i].ID == id {
			entry.ID = id
			entry.Kind = s.data.files[i].Kind
			if entry.Path == "" {
				entry.Path = s.data.files[i].Path
			}
			entry.UpdatedAt = time.Now().UTC()
			s.data.files[i] = entry
			return entry, nil
		}
	}
	return FileEntry{}, apperrors.NotFound("file", id)
}

// DeleteFile removes an entry; deleting a folder removes everything under it.
func (s *Store) DeleteFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.files {
		if s.data.files[i].ID != id {
			continue
		}
		target := s.data.files[i]
		kept := s.data.files[:0]
		for _, f := range s.data.files {
			if f.ID == target.ID {
				continue
			}
			if target.Kind == "folder" && strings.HasPrefix(f.Path, target.Path+"/") {
				continue
			}
			kept = append(kept, f)
		}
		s.data.files = kept
		return nil
	}
	return apperrors.NotFound("file", id)
}

// ListNotices returns a page of inbox notifications, newest first, plus the
// total and the unread count.
func (s *Store) ListNotices(pageNum, pageSize int) ([]Notice, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]Notice(nil), s.data.notices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	unread := 0
	for _, n := range sorted {
		if !n.Read {
			unread++
		}
	}
	return page(sorted, pageNum, pageSize), len(sorted), unread
}

// MarkNoticeRead marks one notification as read.
func (s *Store) MarkNoticeRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.notices {
		if s.data.notices[i].ID == id {
			s.data.notices[i].Read = true
			return nil
		}
	}
	return apperrors.NotFound("notification", id)
}

// MarkAllNoticesRead marks every notification as read.
func (s *Store) MarkAllNoticesRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.notices {
		s.data.notices[i].Read = true
	}
}

// ClearNotices removes every notification.
func (s *Store) ClearNotices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.notices = nil
}

// ListConversations returns every thread, most recently updated first.
func (s *Store) ListConversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]Conversation(nil), s.data.conversations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt) })
	return sorted
}

// ListMessages returns a conversation's messages in send order.
func (s *Store) ListMessages(conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findConversationLocked(conversationID) == nil {
		return nil, apperrors.NotFound("conversation", conversationID)
	}

	out := []Message{}
	for _, m := range s.data.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

// AppendMessage adds a message to a conversation and bumps its summary.
func (s *Store) AppendMessage(conversationID, sender, body string) (Message, error) {
	if strings.TrimSpace(body) == "" {
		return Message{}, apperrors.ValidationError("body", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversationLocked(conversationID)
	if conv == nil {
		return Message{}, apperrors.NotFound("conversation", conversationID)
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Body:           body,
		SentAt:         time.Now().UTC(),
	}
	s.data.messages = append(s.data.messages, msg)
	conv.LastMessage = body
	conv.UpdatedAt = msg.SentAt
	return msg, nil
}

func (s *Store) findConversationLocked(id string) *Conversation {
	for i := range s.data.conversations {
		if s.data.conversations[i].ID == id {
			return &s.data.conversations[i]
		}
	}
	return nil
}

// GetSettings returns the settings document.
func (s *Store) GetSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.settings
}

// UpdateSettings replaces the settings document.
func (s *Store) UpdateSettings(settings Settings) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings = settings
	return settings
}

// GetProfile returns the profile document.
func (s *Store) GetProfile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.profile
}

// UpdateProfile replaces the profile document.
func (s *Store) UpdateProfile(profile Profile) (Profile, error) {
	if strings.TrimSpace(profile.DisplayName) == "" {
		return Profile{}, apperrors.ValidationError("displayName", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.profile = profile
	return profile, nil
}
