package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"deskly/internal/shared/config"
	"deskly/internal/users"
	"deskly/pkg/logger"

	"github.com/google/uuid"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*users.User
	byEmail map[string]*users.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]*users.User), byEmail: make(map[string]*users.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[user.Email]; ok {
		return users.ErrUserAlreadyExists
	}
	user.ID = uuid.New()
	c := *user
	f.byID[user.ID] = &c
	f.byEmail[user.Email] = &c
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdateUserPassword(_ context.Context, id uuid.UUID, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return users.ErrUserNotFound
	}
	u.Password = hashed
	return nil
}

func (f *fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail[email]
	return ok, nil
}

func newTestService() Service {
	return NewService(newFakeUsers(), config.JWTConfig{
		Secret:           "test-secret",
		JWTExpiresIn:     15 * time.Minute,
		RefreshExpiresIn: time.Hour,
	}, logger.Discard())
}

func register(t *testing.T, svc Service, email, role string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
		Password:  "s3cret-pass",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	resp := register(t, svc, "Grace@Example.com", "owner")

	if resp.User.Role != "OWNER" || resp.User.Email != "grace@example.com" {
		t.Fatalf("user = %+v", resp.User)
	}

	claims, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Type != "access" || claims.Role != "OWNER" || claims.UserID != resp.User.ID {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "grace@example.com", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "grace@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected invalid credentials, got %v", err)
	}
}

func TestRegisterRejectsAdminAndDuplicates(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Eve", LastName: "Admin", Email: "eve@example.com", Password: "s3cret-pass", Role: "ADMIN",
	})
	if !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}

	register(t, svc, "dup@example.com", "")
	_, err = svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Dup", LastName: "User", Email: "dup@example.com", Password: "s3cret-pass",
	})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestRefreshTokenRequiresRefreshType(t *testing.T) {
	svc := newTestService()
	resp := register(t, svc, "alan@example.com", "")

	if _, err := svc.RefreshToken(context.Background(), resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}

	pair, err := svc.RefreshToken(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("pair = %+v", pair)
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := newTestService()
	resp := register(t, svc, "mallory@example.com", "")

	other := NewService(newFakeUsers(), config.JWTConfig{Secret: "other", JWTExpiresIn: time.Minute, RefreshExpiresIn: time.Minute}, logger.Discard())
	if _, err := other.ValidateToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService()
	resp := register(t, svc, "linus@example.com", "")
	userID := uuid.MustParse(resp.User.ID)
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, userID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "n3w-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, userID, &ChangePasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "n3w-pass"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "linus@example.com", Password: "n3w-pass"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
