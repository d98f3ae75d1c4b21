// Package fixtures holds the canned data behind the mocked REST surface.
// Data is generated deterministically from a seed, optionally overridden by
// a YAML seed file, and mutated in memory so the dashboard CRUD flows behave
// like a real backend within one process lifetime.
package fixtures

import "time"

// DashboardStats is the headline figure block on the dashboard.
type DashboardStats struct {
	TotalUsers     int     `json:"totalUsers" yaml:"totalUsers"`
	ActiveSessions int     `json:"activeSessions" yaml:"activeSessions"`
	Revenue        float64 `json:"revenue" yaml:"revenue"`
	GrowthRate     float64 `json:"growthRate" yaml:"growthRate"`
	OpenTickets    int     `json:"openTickets" yaml:"openTickets"`
	Conversion     float64 `json:"conversion" yaml:"conversion"`
}

// Activity is one row in the dashboard activity feed.
type Activity struct {
	ID        string    `json:"id" yaml:"id"`
	User      string    `json:"user" yaml:"user"`
	Action    string    `json:"action" yaml:"action"`
	Target    string    `json:"target" yaml:"target"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// CalendarEvent is an entry on the shared calendar.
type CalendarEvent struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Start       time.Time `json:"start" yaml:"start"`
	End         time.Time `json:"end" yaml:"end"`
	AllDay      bool      `json:"allDay" yaml:"allDay"`
	Color       string    `json:"color,omitempty" yaml:"color"`
}

// Document is an entry in the documents list.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Type      string    `json:"type" yaml:"type"` // pdf, sheet, doc, slide
	SizeBytes int64     `json:"sizeBytes" yaml:"sizeBytes"`
	Owner     string    `json:"owner" yaml:"owner"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// FileEntry is an entry in the file browser.
type FileEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Kind      string    `json:"kind" yaml:"kind"` // folder or file
	SizeBytes int64     `json:"sizeBytes" yaml:"sizeBytes"`
	Path      string    `json:"path" yaml:"path"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Notice is a persistent inbox notification, distinct from the transient
// toasts managed by the UI store.
type Notice struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Message   string    `json:"message" yaml:"message"`
	Type      string    `json:"type" yaml:"type"`
	Read      bool      `json:"read" yaml:"read"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Conversation is a message thread summary.
type Conversation struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Participants []string  `json:"participants" yaml:"participants"`
	LastMessage  string    `json:"lastMessage" yaml:"lastMessage"`
	Unread       int       `json:"unread" yaml:"unread"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Message is one entry in a conversation.
type Message struct {
	ID             string    `json:"id" yaml:"id"`
	ConversationID string    `json:"conversationId" yaml:"conversationId"`
	Sender         string    `json:"sender" yaml:"sender"`
	Body           string    `json:"body" yaml:"body"`
	SentAt         time.Time `json:"sentAt" yaml:"sentAt"`
}

// Settings is the account settings document.
type Settings struct {
	Language           string `json:"language" yaml:"language"`
	Timezone           string `json:"timezone" yaml:"timezone"`
	DateFormat         string `json:"dateFormat" yaml:"dateFormat"`
	EmailNotifications bool   `json:"emailNotifications" yaml:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications" yaml:"pushNotifications"`
	WeeklyDigest       bool   `json:"weeklyDigest" yaml:"weeklyDigest"`
}

// Profile is the editable profile document.
type Profile struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Email       string `json:"email" yaml:"email"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar"`
	Title       string `json:"title,omitempty" yaml:"title"`
	Bio         string `json:"bio,omitempty" yaml:"bio"`
	Location    string `json:"location,omitempty" yaml:"location"`
}

// SeedFile is the optional YAML override for generated data. Absent sections
// keep their generated defaults.
type SeedFile struct {
	Stats         *DashboardStats `yaml:"stats"`
	Activities    []Activity      `yaml:"activities"`
	Events        []CalendarEvent `yaml:"events"`
	Documents     []Document      `yaml:"documents"`
	Files         []FileEntry     `yaml:"files"`
	Notices       []Notice        `yaml:"notices"`
	Conversations []Conversation  `yaml:"conversations"`
	Messages      []Message       `yaml:"messages"`
	Settings      *Settings       `yaml:"settings"`
	Profile       *Profile        `yaml:"profile"`
}
