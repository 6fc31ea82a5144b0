// Package colors maps names to palette colours deterministically.
package colors

import (
	"maps"
	"sync"
	"unicode/utf16"
)

var palette = [20]string{
	"#10b981", // emerald
	"#8b5cf6", // violet
	"#f59e0b", // amber
	"#06b6d4", // cyan
	"#ec4899", // pink
	"#eab308", // yellow
	"#ef4444", // red
	"#84cc16", // lime
	"#f97316", // orange
	"#6366f1", // indigo
	"#14b8a6", // teal
	"#a855f7", // purple
	"#f43f5e", // rose
	"#22c55e", // green
	"#3b82f6", // blue
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#06b6d4", // cyan
	"#ec4899", // magenta
	"#10b981", // emerald
}

// Palette returns a copy of the fixed palette.
func Palette() []string {
	return append([]string(nil), palette[:]...)
}

// Hash is the 31-multiplier string hash over UTF-16 code units, wrapped to
// 32-bit signed arithmetic, returned as its absolute value.
func Hash(name string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(name)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// Index returns the palette slot for name.
func Index(name string) int {
	return int(Hash(name) % int64(len(palette)))
}

// Service caches the colour given to each name. Once cached, Color never
// changes a mapping; only Set and Clear do.
type Service struct {
	mu       sync.RWMutex
	assigned map[string]string
}

func NewService() *Service {
	return &Service{assigned: make(map[string]string)}
}

// Color returns the cached colour for name, assigning one from the palette
// on first use.
func (s *Service) Color(name string) string {
	s.mu.RLock()
	c, ok := s.assigned[name]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.assigned[name]; ok {
		return c
	}
	c = palette[Index(name)]
	s.assigned[name] = c
	return c
}

// Existing returns the cached colour without assigning one.
func (s *Service) Existing(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.assigned[name]
	return c, ok
}

// Set pins name to color.
func (s *Service) Set(name, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned[name] = color
}

// Assigned returns a copy of every cached mapping.
func (s *Service) Assigned() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.assigned)
}

// Clear forgets every mapping.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.assigned)
}
