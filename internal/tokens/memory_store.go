package tokens

import (
	"context"
	"sync"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[domain.Platform]domain.Token
}

var _ ports.TokenStore = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: map[domain.Platform]domain.Token{}}
}

func (s *MemoryStore) Get(_ context.Context, platform domain.Platform) (domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[platform]
	if !ok {
		return domain.Token{}, domain.ErrNotFound
	}
	return token, nil
}

func (s *MemoryStore) Put(_ context.Context, token domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Platform] = token
	return nil
}
