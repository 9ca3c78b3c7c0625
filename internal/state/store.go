package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/storeview/internal/condastore"
)

// Refresh carries the results of one successful poll.
type Refresh struct {
	Status       *condastore.ServerStatus
	Environments []condastore.Environment
	Channels     []condastore.Channel
}

// Snapshot represents the latest server data available to the UI.
type Snapshot struct {
	Status              condastore.ServerStatus
	HasStatus           bool
	Environments        []condastore.Environment
	Channels            []condastore.Channel
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the server has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// ChannelNames maps channel id to name for display.
func (s Snapshot) ChannelNames() map[int64]string {
	names := make(map[int64]string, len(s.Channels))
	for _, ch := range s.Channels {
		names[ch.ID] = ch.Name
	}
	return names
}

// FindEnvironment returns the environment with the given namespace and name.
func (s Snapshot) FindEnvironment(namespace, name string) (condastore.Environment, bool) {
	for _, env := range s.Environments {
		if env.Namespace.Name == namespace && env.Name == name {
			return env, true
		}
	}
	return condastore.Environment{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(r Refresh, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Environments = cloneSlice(r.Environments)
	s.snapshot.Channels = cloneSlice(r.Channels)
	if r.Status != nil {
		s.snapshot.Status = *r.Status
		s.snapshot.HasStatus = true
	} else {
		s.snapshot.HasStatus = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Environments = cloneSlice(s.snapshot.Environments)
	snap.Channels = cloneSlice(s.snapshot.Channels)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
