package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"gymops_backend/internal/auth/password"
	"gymops_backend/internal/auth/repository"
	"gymops_backend/platform/apperr"
	"gymops_backend/platform/logger"
)

type fakeAuthRepo struct {
	usersByEmail map[string]repository.User
	usersByID    map[uuid.UUID]repository.User
	tokens       map[string]uuid.UUID
	tokenExpiry  map[string]time.Time
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		usersByEmail: make(map[string]repository.User),
		usersByID:    make(map[uuid.UUID]repository.User),
		tokens:       make(map[string]uuid.UUID),
		tokenExpiry:  make(map[string]time.Time),
	}
}

func (f *fakeAuthRepo) addUser(u repository.User) {
	f.usersByEmail[u.Email] = u
	f.usersByID[u.ID] = u
}

func (f *fakeAuthRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.usersByEmail[email]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeAuthRepo) GetUserByID(_ context.Context, userID uuid.UUID) (repository.User, error) {
	u, ok := f.usersByID[userID]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeAuthRepo) ListActiveUsersByRole(_ context.Context, role string) ([]repository.User, error) {
	var out []repository.User
	for _, u := range f.usersByID {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeAuthRepo) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = userID
	f.tokenExpiry[tokenHash] = expiresAt
	return nil
}

func (f *fakeAuthRepo) GetRefreshToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	userID, ok := f.tokens[tokenHash]
	if !ok {
		return uuid.Nil, time.Time{}, apperr.NotFound("refresh token not found")
	}
	return userID, f.tokenExpiry[tokenHash], nil
}

func (f *fakeAuthRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(f.tokens, tokenHash)
	delete(f.tokenExpiry, tokenHash)
	return nil
}

func (f *fakeAuthRepo) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	for hash, id := range f.tokens {
		if id == userID {
			delete(f.tokens, hash)
			delete(f.tokenExpiry, hash)
		}
	}
	return nil
}

var _ repository.AuthRepository = (*fakeAuthRepo)(nil)

type fakeAuthConfig struct{}

func (fakeAuthConfig) GetJWTAccessSecret() string        { return "test-access-secret" }
func (fakeAuthConfig) GetJWTRefreshSecret() string       { return "test-refresh-secret" }
func (fakeAuthConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (fakeAuthConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }

func newTestService(repo *fakeAuthRepo) *Service {
	return New(repo, fakeAuthConfig{}, logger.New("test"))
}

func seedUser(t *testing.T, repo *fakeAuthRepo, email, plain, role string, active bool) repository.User {
	t.Helper()

	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := repository.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
		CreatedAt:    time.Now(),
	}
	repo.addUser(u)
	return u
}

func TestSignInIssuesTokenPair(t *testing.T) {
	repo := newFakeAuthRepo()
	seedUser(t, repo, "staff@gym.local", "open-sesame", RoleStaff, true)
	svc := newTestService(repo)

	access, refresh, err := svc.SignIn(context.Background(), "staff@gym.local", "open-sesame")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("expected both tokens, got access=%q refresh=%q", access, refresh)
	}
	if len(repo.tokens) != 1 {
		t.Fatalf("expected one stored refresh token, got %d", len(repo.tokens))
	}
}

func TestSignInRejectsBadPasswordAndInactive(t *testing.T) {
	repo := newFakeAuthRepo()
	seedUser(t, repo, "staff@gym.local", "open-sesame", RoleStaff, true)
	seedUser(t, repo, "gone@gym.local", "open-sesame", RoleStaff, false)
	svc := newTestService(repo)

	if _, _, err := svc.SignIn(context.Background(), "staff@gym.local", "wrong"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("bad password: expected unauthorized, got %v", err)
	}
	if _, _, err := svc.SignIn(context.Background(), "gone@gym.local", "open-sesame"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("inactive account: expected unauthorized, got %v", err)
	}
	if _, _, err := svc.SignIn(context.Background(), "nobody@gym.local", "open-sesame"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("unknown email: expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newFakeAuthRepo()
	seedUser(t, repo, "staff@gym.local", "open-sesame", RoleStaff, true)
	svc := newTestService(repo)

	_, refresh, err := svc.SignIn(context.Background(), "staff@gym.local", "open-sesame")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	access2, refresh2, err := svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if access2 == "" || refresh2 == "" || refresh2 == refresh {
		t.Fatalf("expected a rotated token pair")
	}

	// The consumed token must no longer be accepted.
	if _, _, err := svc.Refresh(context.Background(), refresh); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("reused refresh token: expected unauthorized, got %v", err)
	}
}

func TestDirectoryListsActiveUsersByRole(t *testing.T) {
	repo := newFakeAuthRepo()
	admin := seedUser(t, repo, "admin@gym.local", "open-sesame", RoleAdmin, true)
	seedUser(t, repo, "staff@gym.local", "open-sesame", RoleStaff, true)
	seedUser(t, repo, "gone@gym.local", "open-sesame", RoleAdmin, false)

	var dir Directory = newTestService(repo)

	profiles, err := dir.ListActiveUsersByRole(context.Background(), RoleAdmin)
	if err != nil {
		t.Fatalf("ListActiveUsersByRole: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected the one active admin, got %d profiles", len(profiles))
	}
	if profiles[0].ID != admin.ID || profiles[0].Role != RoleAdmin {
		t.Fatalf("unexpected profile %+v", profiles[0])
	}
}
