package devserver

import (
	"sync"
	"time"

	"ragchat-console/internal/dto"

	"github.com/google/uuid"
)

type user struct {
	Id           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         string
}

// memStore is the devserver's entire world: registered users, the document
// lifecycle and the query history, all in memory. A background tick promotes
// uploaded documents to processed to imitate the ingestion pipeline.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*user // keyed by email
	uploaded  map[string]bool
	processed map[string]bool
	history   []dto.HistoryRecord
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*user{},
		uploaded:  map[string]bool{},
		processed: map[string]bool{},
	}
}

func (s *memStore) addUser(u *user) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Email]; exists {
		return false
	}
	if u.Id == "" {
		u.Id = uuid.NewString()
	}
	s.users[u.Email] = u
	return true
}

func (s *memStore) userByEmail(email string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	return u, ok
}

func (s *memStore) userById(id string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Id == id {
			return u, true
		}
	}
	return nil, false
}

func (s *memStore) addUploaded(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded[name] = true
}

func (s *memStore) documents() (uploaded, processed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d := range s.uploaded {
		uploaded = append(uploaded, d)
	}
	for d := range s.processed {
		processed = append(processed, d)
	}
	return uploaded, processed
}

func (s *memStore) deleteDocument(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploaded, name)
	delete(s.processed, name)
}

func (s *memStore) appendHistory(rec dto.HistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
}

func (s *memStore) historyRecords() []dto.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dto.HistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}

// runIngest promotes one pending document to processed per tick until the
// stop channel closes.
func (s *memStore) runIngest(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			for d := range s.uploaded {
				if !s.processed[d] {
					s.processed[d] = true
					break
				}
			}
			s.mu.Unlock()
		}
	}
}
