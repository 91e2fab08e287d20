package session

import (
	"context"
	"sync"
)

// Token names under which credentials are persisted.
const (
	AccessKey  = "access"
	RefreshKey = "refresh"
)

// Tokens is a JWT pair.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenStore persists a pair of tokens for one owner.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// MemoryTokens keeps tokens in process memory.
type MemoryTokens struct {
	mu sync.Mutex
	t  Tokens
}

func NewMemoryTokens() *MemoryTokens { return &MemoryTokens{} }

func (m *MemoryTokens) Load(context.Context) (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t, nil
}

func (m *MemoryTokens) Save(_ context.Context, t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
	return nil
}

func (m *MemoryTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = Tokens{}
	return nil
}
