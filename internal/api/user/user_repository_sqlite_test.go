package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/go-authify/app/db"
	"github.com/FACorreiaa/go-authify/internal/types"
)

func newSQLiteRepo(t *testing.T) *SQLiteUserRepo {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "users.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteUserRepo(db, nil, discardLogger())
}

func TestSQLiteUserRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	created, err := repo.Create(ctx, types.NewUser{
		Email:        " Carol@Example.com",
		PasswordHash: "$2a$04$hash",
		FullName:     strPtr("Carol"),
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", created.Email)
	assert.Equal(t, types.RoleUser, created.Role)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsVerified)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.UpdatedAt)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, "Carol", *byID.FullName)

	byEmail, err := repo.FindByEmail(ctx, "CAROL@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLiteUserRepo_EmailUniqueIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	_, err := repo.Create(ctx, types.NewUser{Email: "dave@example.com", IsActive: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, types.NewUser{Email: "DAVE@example.com", IsActive: true})
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
}

func TestSQLiteUserRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	u, err := repo.Create(ctx, types.NewUser{Email: "erin@example.com", IsActive: true})
	require.NoError(t, err)
	other, err := repo.Create(ctx, types.NewUser{Email: "frank@example.com", IsActive: true})
	require.NoError(t, err)

	admin := types.RoleAdmin
	inactive := false
	login := fixed.Add(time.Hour)
	updated, err := repo.Update(ctx, u.ID, types.UserPatch{Role: &admin, IsActive: &inactive, LastLoginAt: &login})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)
	require.NotNil(t, updated.LastLoginAt)
	assert.True(t, login.Equal(*updated.LastLoginAt))
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, fixed.Equal(*updated.UpdatedAt))

	unchanged, err := repo.Update(ctx, u.ID, types.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, unchanged.Role)

	taken := "FRANK@example.com"
	_, err = repo.Update(ctx, u.ID, types.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	stillFrank, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", stillFrank.Email)

	_, err = repo.Update(ctx, uuid.New(), types.UserPatch{IsActive: &inactive})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLiteUserRepo_ListPaging(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for i, email := range emails {
		at := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return at }
		_, err := repo.Create(ctx, types.NewUser{Email: email, IsActive: true})
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, types.ListUsersParams{Skip: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b@example.com", page[0].Email)
	assert.Equal(t, "c@example.com", page[1].Email)

	page, err = repo.List(ctx, types.ListUsersParams{Skip: 0, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a@example.com", page[0].Email)
}
