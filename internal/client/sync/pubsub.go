package sync

import (
	gosync "sync"

	"github.com/Evermishka/notes-app/internal/client/models"
)

// subscribers is a registry of callbacks interested in sync events.
// Notifications are delivered on their own goroutines so a slow listener
// cannot stall the drain loop.
type subscribers struct {
	mu       gosync.Mutex
	nextID   int
	status   map[int]func(models.SyncState)
	note     map[int]func(noteID string)
	download map[int]func()
}

func newSubscribers() *subscribers {
	return &subscribers{
		status:   make(map[int]func(models.SyncState)),
		note:     make(map[int]func(string)),
		download: make(map[int]func()),
	}
}

func (s *subscribers) addStatus(fn func(models.SyncState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.status[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.status, id)
	}
}

func (s *subscribers) addNote(fn func(string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.note[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.note, id)
	}
}

func (s *subscribers) addDownload(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.download[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.download, id)
	}
}

func (s *subscribers) notifyStatus(state models.SyncState) {
	s.mu.Lock()
	fns := make([]func(models.SyncState), 0, len(s.status))
	for _, fn := range s.status {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		go fn(state)
	}
}

func (s *subscribers) notifyNote(noteID string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.note))
	for _, fn := range s.note {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		go fn(noteID)
	}
}

func (s *subscribers) notifyDownload() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.download))
	for _, fn := range s.download {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}
