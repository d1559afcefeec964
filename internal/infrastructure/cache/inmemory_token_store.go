package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type tokenEntry struct {
	deliveryID uuid.UUID
	token      string
	expiresAt  time.Time
}

// InMemoryTokenStore implements delivery.TokenStore with local maps,
// for single-instance deployments and tests. Expired entries are
// swept by a background goroutine.
type InMemoryTokenStore struct {
	mu         sync.RWMutex
	byToken    map[string]tokenEntry
	byDelivery map[uuid.UUID]tokenEntry
	stopChan   chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewInMemoryTokenStore creates an in-memory token store and starts
// its cleanup goroutine
func NewInMemoryTokenStore() *InMemoryTokenStore {
	store := &InMemoryTokenStore{
		byToken:    make(map[string]tokenEntry),
		byDelivery: make(map[uuid.UUID]tokenEntry),
		stopChan:   make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Link stores a live token under both directions for the secret's
// lifetime, replacing any previous token for the delivery
func (s *InMemoryTokenStore) Link(ctx context.Context, deliveryID uuid.UUID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.byDelivery[deliveryID]; ok {
		delete(s.byToken, prior.token)
	}
	entry := tokenEntry{
		deliveryID: deliveryID,
		token:      token,
		expiresAt:  time.Now().Add(ttl),
	}
	s.byToken[token] = entry
	s.byDelivery[deliveryID] = entry
	return nil
}

// Resolve looks up the delivery for a scanned token
func (s *InMemoryTokenStore) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byToken[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return uuid.Nil, false, nil
	}
	return entry.deliveryID, true, nil
}

// TokenFor returns the live plaintext token for a delivery, if any
func (s *InMemoryTokenStore) TokenFor(ctx context.Context, deliveryID uuid.UUID) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byDelivery[deliveryID]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.token, true, nil
}

// Invalidate removes a delivery's consumed or reissued token
func (s *InMemoryTokenStore) Invalidate(ctx context.Context, deliveryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.byDelivery[deliveryID]; ok {
		delete(s.byToken, entry.token)
		delete(s.byDelivery, deliveryID)
	}
	return nil
}

// Close stops the cleanup goroutine
func (s *InMemoryTokenStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

func (s *InMemoryTokenStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemoryTokenStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, entry := range s.byToken {
		if now.After(entry.expiresAt) {
			delete(s.byToken, token)
		}
	}
	for deliveryID, entry := range s.byDelivery {
		if now.After(entry.expiresAt) {
			delete(s.byDelivery, deliveryID)
		}
	}
}
