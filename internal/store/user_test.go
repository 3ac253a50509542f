package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
)

// createTestUser builds a user with sensible defaults for store tests.
func createTestUser(id, username, email string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		ProfileImage: "https://api.dicebear.com/9.x/avataaars/svg?seed=" + username,
		Timestamps: domain.Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func TestCreateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser("user-001", "reader", "reader@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	retrieved, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, retrieved.Username)
	assert.Equal(t, user.Email, retrieved.Email)
	assert.Equal(t, user.PasswordHash, retrieved.PasswordHash)
}

func TestCreateUser_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, createTestUser("user-001", "reader", "reader@example.com")))

	err := s.CreateUser(ctx, createTestUser("user-001", "other", "other@example.com"))
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, createTestUser("user-001", "reader", "reader@example.com")))

	// Email uniqueness is case-insensitive.
	err := s.CreateUser(ctx, createTestUser("user-002", "other", "READER@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, createTestUser("user-001", "reader", "reader@example.com")))

	err := s.CreateUser(ctx, createTestUser("user-002", "Reader", "other@example.com"))
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetUser_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUser(context.Background(), "user-missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser("user-001", "reader", "reader@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	retrieved, err := s.GetUserByEmail(ctx, "Reader@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByUsername(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser("user-001", "reader", "reader@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	retrieved, err := s.GetUserByUsername(ctx, "READER")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser_ChangeEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser("user-001", "reader", "reader@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	user.Email = "new@example.com"
	require.NoError(t, s.UpdateUser(ctx, user))

	// Old index is gone, new one resolves.
	_, err := s.GetUserByEmail(ctx, "reader@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	retrieved, err := s.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
}

func TestUpdateUser_EmailTaken(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, createTestUser("user-001", "reader", "reader@example.com")))
	other := createTestUser("user-002", "other", "other@example.com")
	require.NoError(t, s.CreateUser(ctx, other))

	other.Email = "reader@example.com"
	err := s.UpdateUser(ctx, other)
	assert.ErrorIs(t, err, ErrEmailExists)
}
