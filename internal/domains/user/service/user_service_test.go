package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gallery-backend/internal/domains/user"
	"gallery-backend/pkg/jwt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *memoryRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memoryRepo) update(id uuid.UUID, fn func(*user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *memoryRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(u *user.User) {
		now := time.Now()
		u.LastLoginAt = &now
	})
}

func (r *memoryRepo) UpdateRole(_ context.Context, id uuid.UUID, role user.Role) error {
	return r.update(id, func(u *user.User) { u.Role = role })
}

func (r *memoryRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(u *user.User) { u.PasswordHash = hash })
}

func newTestService() (user.Service, *memoryRepo, *jwt.Manager) {
	repo := newMemoryRepo()
	tokens := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)
	return NewUserService(repo, tokens), repo, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := newTestService()

	dto, err := svc.Register(ctx, user.RegisterRequest{Email: "  Ada@Example.com ", Password: "secret123", FullName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", dto.Email)
	assert.Equal(t, user.RoleUser, dto.Role)

	stored, err := repo.FindByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	res, err := svc.Login(ctx, user.LoginRequest{Email: "ADA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, dto.ID, res.User.ID)

	claims, err := tokens.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, dto.ID.String(), claims.UserID)
	assert.Equal(t, "user", claims.Role)

	stored, _ = repo.FindByID(ctx, dto.ID)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), user.RegisterRequest{Email: "not-an-email", Password: "short"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "email")
	assert.Contains(t, verrs, "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Register(ctx, user.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, user.RegisterRequest{Email: "A@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, user.ErrEmailAlreadyExists)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	dto, err := svc.Register(ctx, user.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "a@example.com", Password: "wrong1234"})
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	require.NoError(t, repo.update(dto.ID, func(u *user.User) { u.IsActive = false }))
	_, err = svc.Login(ctx, user.LoginRequest{Email: "a@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, user.ErrUserInactive)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Register(ctx, user.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)
	res, err := svc.Login(ctx, user.LoginRequest{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, user.ErrInvalidCredentials, "access tokens cannot be used to refresh")

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	admin, err := svc.EnsureAdmin(ctx, "Admin@Example.com", "admin-pass-1", "Admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	again, err := svc.EnsureAdmin(ctx, "admin@example.com", "rotated-pass-2", "Admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "admin@example.com", Password: "rotated-pass-2"})
	assert.NoError(t, err)
}

func TestEnsureAdmin_PromotesExistingUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	dto, err := svc.Register(ctx, user.RegisterRequest{Email: "boss@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.EnsureAdmin(ctx, "boss@example.com", "secret123", "")
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, stored.Role)
}
