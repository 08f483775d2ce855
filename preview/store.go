// SPDX-License-Identifier: EPL-2.0

// Package preview hands out opaque display handles for in-memory audio so a
// UI can play a recording back without the bytes leaving the process.
package preview

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ik5/coughcap/media"
)

// Store maps handles to files. Handles are random UUIDs and are never
// reused. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string]media.File
}

func NewStore() *Store {
	return &Store{files: make(map[string]media.File)}
}

// Create registers f and returns its handle.
func (s *Store) Create(f media.File) string {
	handle := uuid.New().String()

	s.mu.Lock()
	s.files[handle] = f
	s.mu.Unlock()

	return handle
}

func (s *Store) Get(handle string) (media.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[handle]
	return f, ok
}

// Revoke drops handle. Revoking an unknown or empty handle is a no-op.
func (s *Store) Revoke(handle string) {
	if handle == "" {
		return
	}

	s.mu.Lock()
	delete(s.files, handle)
	s.mu.Unlock()
}

// Len reports how many handles are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
