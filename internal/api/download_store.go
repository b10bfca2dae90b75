package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// downloadEntry 生成済みファイルの一時保管
type downloadEntry struct {
	data        []byte
	fileName    string
	contentType string
	expiresAt   time.Time
}

type downloadStore struct {
	mu    sync.Mutex
	items map[string]downloadEntry
}

func newDownloadStore() *downloadStore {
	return &downloadStore{
		items: make(map[string]downloadEntry),
	}
}

func (s *downloadStore) put(data []byte, fileName, contentType string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = uuid.NewString()
	s.items[token] = downloadEntry{
		data:        data,
		fileName:    fileName,
		contentType: contentType,
		expiresAt:   time.Now().Add(ttl),
	}
	return token
}

func (s *downloadStore) get(token string) (downloadEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		return downloadEntry{}, false
	}
	if time.Now().After(v.expiresAt) {
		delete(s.items, token)
		return downloadEntry{}, false
	}
	return v, true
}

func (s *downloadStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
