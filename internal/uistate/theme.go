package uistate

import "sync"

// Theme is the stored preference; "system" defers to the OS scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Scheme is an effective color scheme after resolving ThemeSystem.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// ValidTheme reports whether t is one of the three accepted values.
func ValidTheme(t Theme) bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// NextTheme returns the successor in the light -> dark -> system cycle.
// Unknown values restart at light.
func NextTheme(t Theme) Theme {
	switch t {
	case ThemeLight:
		return ThemeDark
	case ThemeDark:
		return ThemeSystem
	default:
		return ThemeLight
	}
}

// SystemSchemeSource reports the operating system's color scheme. Clients
// feed real OS data through the gateway; tests and headless setups use a
// StaticSchemeSource.
type SystemSchemeSource interface {
	Current() Scheme
	// Subscribe registers a change callback and returns its unsubscribe func.
	Subscribe(fn func(Scheme)) func()
}

// StaticSchemeSource is a SystemSchemeSource whose value is set explicitly.
type StaticSchemeSource struct {
	mu     sync.Mutex
	scheme Scheme
	subs   map[int]func(Scheme)
	nextID int
}

// NewStaticSchemeSource creates a source reporting the given scheme.
func NewStaticSchemeSource(scheme Scheme) *StaticSchemeSource {
	return &StaticSchemeSource{
		scheme: scheme,
		subs:   make(map[int]func(Scheme)),
	}
}

// Current returns the current scheme.
func (s *StaticSchemeSource) Current() Scheme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheme
}

// Set changes the scheme and notifies subscribers.
func (s *StaticSchemeSource) Set(scheme Scheme) {
	s.mu.Lock()
	if s.scheme == scheme {
		s.mu.Unlock()
		return
	}
	s.scheme = scheme
	subs := make([]func(Scheme), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(scheme)
	}
}

// Subscribe registers fn and returns its unsubscribe function.
func (s *StaticSchemeSource) Subscribe(fn func(Scheme)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
