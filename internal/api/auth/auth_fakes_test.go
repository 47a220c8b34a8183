package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-authify/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory UserStore with the same uniqueness rules as the
// real repositories.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]types.User{}}
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == types.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *memStore) Create(_ context.Context, nu types.NewUser) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := types.NormalizeEmail(nu.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, types.ErrDuplicateKey
		}
	}
	u := types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: nu.PasswordHash,
		FullName:     nu.FullName,
		Role:         nu.Role,
		IsActive:     nu.IsActive,
		IsVerified:   nu.IsVerified,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, p types.UserPatch) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	if p.Email != nil {
		u.Email = types.NormalizeEmail(*p.Email)
	}
	if p.FullName != nil {
		u.FullName = p.FullName
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if p.LastLoginAt != nil {
		u.LastLoginAt = p.LastLoginAt
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now
	s.users[id] = u
	return &u, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// MockUserStore is a testify mock of UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, u types.NewUser) (*types.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*types.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

// fakeProvider returns canned identities keyed by code or token.
type fakeProvider struct {
	name       string
	identities map[string]*types.ExternalIdentity
	calls      int
	noAuthURL  bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthorizationURL(state string) string {
	if f.noAuthURL {
		return ""
	}
	return "https://idp.example.com/auth?state=" + state
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code, _ string) (*types.ExternalIdentity, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, types.ErrExchangeFailed
	}
	id, ok := f.identities[code]
	if !ok {
		return nil, types.ErrExchangeFailed
	}
	cp := *id
	return &cp, nil
}

func (f *fakeProvider) VerifyToken(ctx context.Context, token string) (*types.ExternalIdentity, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, types.ErrInvalidProviderToken
	}
	id, ok := f.identities[token]
	if !ok {
		return nil, types.ErrInvalidProviderToken
	}
	cp := *id
	return &cp, nil
}
