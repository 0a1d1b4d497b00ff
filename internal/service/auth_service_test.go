package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moon4656/skyboot-core/internal/cache"
	"github.com/moon4656/skyboot-core/internal/domain"
	"github.com/moon4656/skyboot-core/internal/dto"
	"github.com/moon4656/skyboot-core/internal/idgen"
	"github.com/moon4656/skyboot-core/internal/logsink"
	"github.com/moon4656/skyboot-core/internal/password"
	"github.com/moon4656/skyboot-core/internal/token"
	"github.com/moon4656/skyboot-core/pkg/logger"
)

// MockUserStore is a map-backed UserStore
type MockUserStore struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	getErr  error
	lockErr error
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*domain.User)}
}

func (m *MockUserStore) Add(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *MockUserStore) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockUserStore) IncrementLock(ctx context.Context, userID string, threshold int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return 0, m.lockErr
	}
	u, ok := m.users[userID]
	if !ok {
		return 0, nil
	}
	u.LockCount++
	now := time.Now()
	u.LockLastTime = &now
	if threshold > 0 && u.LockCount > threshold {
		u.StatusCode = domain.StatusLocked
	}
	return u.LockCount, nil
}

func (m *MockUserStore) ResetLock(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LockCount = 0
	}
	return nil
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.PasswordHash = passwordHash
		now := time.Now()
		u.PasswordChangedTime = &now
	}
	return nil
}

func (m *MockUserStore) TouchPasswordChanged(ctx context.Context, userID string) error {
	return nil
}

func (m *MockUserStore) get(userID string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID]
}

// capturingLoginLog collects appended entries behind a sink
type capturingLoginLog struct {
	mu      sync.Mutex
	entries []*domain.LoginLogEntry
}

func (c *capturingLoginLog) Append(ctx context.Context, entry *domain.LoginLogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *capturingLoginLog) all() []*domain.LoginLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.LoginLogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

type authFixture struct {
	users   *MockUserStore
	logged  *capturingLoginLog
	sink    *logsink.Sink[*domain.LoginLogEntry]
	service AuthService
	clock   *fixtureClock
}

type fixtureClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixtureClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixtureClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newAuthFixture(t *testing.T, cfg AuthServiceConfig) *authFixture {
	t.Helper()

	users := NewMockUserStore()
	logged := &capturingLoginLog{}
	sink := logsink.New[*domain.LoginLogEntry]("login_log", 64, logged.Append, logger.Get())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sink.Close(ctx)
	})

	// Far enough ahead that refresh-token lifetimes measured against the
	// real wall clock stay positive.
	clock := &fixtureClock{t: time.Now().Add(365 * 24 * time.Hour).Truncate(time.Second)}
	codec, err := token.NewCodec("test-secret", "HS256", 30*time.Minute, 7*24*time.Hour, clock.Now)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	hasher, err := password.NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	svc := NewAuthService(
		users,
		sink,
		hasher,
		codec,
		cache.NewMemoryReplayCache(),
		idgen.New(clock),
		cfg,
		logger.Get(),
	)

	return &authFixture{
		users:   users,
		logged:  logged,
		sink:    sink,
		service: svc,
		clock:   clock,
	}
}

func (f *authFixture) addUser(t *testing.T, userID, plaintext string, status domain.StatusCode) {
	t.Helper()
	hasher, err := password.NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	f.users.Add(&domain.User{
		UserID:       userID,
		DisplayName:  "Test User",
		Email:        userID + "@example.com",
		GroupID:      "GRP001",
		StatusCode:   status,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
}

// drainLog closes the sink and returns everything it wrote
func (f *authFixture) drainLog(t *testing.T) []*domain.LoginLogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.sink.Close(ctx); err != nil {
		t.Fatalf("sink close: %v", err)
	}
	return f.logged.all()
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret-password", domain.StatusActive)

	resp, err := f.service.Login(context.Background(), &dto.LoginRequest{
		UserID:   "admin01",
		Password: "secret-password",
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", resp.TokenType)
	}
	if resp.ExpiresIn != int64((30 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want 1800", resp.ExpiresIn)
	}
	if resp.UserInfo.UserID != "admin01" {
		t.Errorf("user_info.user_id = %q, want admin01", resp.UserInfo.UserID)
	}

	entries := f.drainLog(t)
	if len(entries) != 1 {
		t.Fatalf("login log entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ErrorFlag {
		t.Error("success logged with error flag")
	}
	if e.UserID != "admin01" || e.SourceIP != "10.0.0.1" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.LogID) != idgen.LogIDWidth {
		t.Errorf("log_id width = %d, want %d", len(e.LogID), idgen.LogIDWidth)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		pwd      string
		status   domain.StatusCode
		loginAs  string
		loginPwd string
		wantCode string
	}{
		{"unknown user", "admin01", "secret", domain.StatusActive, "nobody", "secret", domain.LoginErrNoUser},
		{"wrong password", "admin01", "secret", domain.StatusActive, "admin01", "wrong", domain.LoginErrBadPwd},
		{"disabled account", "admin01", "secret", domain.StatusDisabled, "admin01", "secret", domain.LoginErrInactive},
		{"locked account", "admin01", "secret", domain.StatusLocked, "admin01", "secret", domain.LoginErrInactive},
		{"pending account", "admin01", "secret", domain.StatusPending, "admin01", "secret", domain.LoginErrInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, AuthServiceConfig{})
			f.addUser(t, tt.userID, tt.pwd, tt.status)

			_, err := f.service.Login(context.Background(), &dto.LoginRequest{
				UserID:   tt.loginAs,
				Password: tt.loginPwd,
			}, "10.0.0.1", "test-agent")

			// Every failure kind surfaces as the same error
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}

			entries := f.drainLog(t)
			if len(entries) != 1 {
				t.Fatalf("login log entries = %d, want 1", len(entries))
			}
			if !entries[0].ErrorFlag {
				t.Error("failure logged without error flag")
			}
			if entries[0].ErrorCode != tt.wantCode {
				t.Errorf("error_code = %q, want %q", entries[0].ErrorCode, tt.wantCode)
			}
		})
	}
}

func TestAuthService_Login_LockCounting(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{LockThreshold: 3})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "wrong"}, "10.0.0.1", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	u := f.users.get("admin01")
	if u.LockCount != 4 {
		t.Errorf("lock_count = %d, want 4", u.LockCount)
	}
	if u.StatusCode != domain.StatusLocked {
		t.Errorf("status = %q, want locked after crossing threshold", u.StatusCode)
	}

	// Locked account rejects even the correct password
	_, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("locked login: err = %v", err)
	}
}

func TestAuthService_Login_ResetsLockOnSuccess(t *testing.T) {
	// Threshold 0 disables auto-lock; failures still count
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "wrong"}, "10.0.0.1", "")
	}
	if got := f.users.get("admin01").LockCount; got != 2 {
		t.Fatalf("lock_count = %d, want 2", got)
	}
	if got := f.users.get("admin01").StatusCode; got != domain.StatusActive {
		t.Fatalf("status = %q, want still active with threshold disabled", got)
	}

	if _, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := f.users.get("admin01").LockCount; got != 0 {
		t.Errorf("lock_count = %d, want 0 after success", got)
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.users.getErr = errors.New("connection refused")

	_, err := f.service.Login(context.Background(), &dto.LoginRequest{UserID: "admin01", Password: "x"}, "10.0.0.1", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("infrastructure failure disguised as bad credentials")
	}

	// Still exactly one log entry
	entries := f.drainLog(t)
	if len(entries) != 1 {
		t.Fatalf("login log entries = %d, want 1", len(entries))
	}
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	login, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.clock.Advance(time.Minute)

	resp, err := f.service.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected a new access token")
	}
	if resp.RefreshToken != "" {
		t.Error("rotation off: refresh response must not carry a refresh token")
	}

	// Access tokens never refresh
	if _, err := f.service.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh with access token: err = %v, want ErrInvalidToken", err)
	}

	// Garbage never refreshes
	if _, err := f.service.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh with garbage: err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_Refresh_DeactivatedPrincipal(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	login, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Deactivate between issue and refresh
	f.users.get("admin01").StatusCode = domain.StatusDisabled

	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_Refresh_RotationReplay(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{RefreshRotation: true})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	login, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A later tick keeps the rotated token distinct from the original
	f.clock.Advance(time.Second)

	first, err := f.service.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if first.RefreshToken == "" {
		t.Fatal("rotation on: expected a rotated refresh token")
	}

	// Replaying the rotated-out token fails
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("replay: err = %v, want ErrInvalidToken", err)
	}

	// The rotated token works once
	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, first.RefreshToken); err != nil {
		t.Errorf("rotated refresh: %v", err)
	}
}

func TestAuthService_Introspect(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	login, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := f.service.Introspect(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if claims.UserID != "admin01" || claims.GroupID != "GRP001" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := f.service.Introspect(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("introspect refresh token: err = %v, want ErrInvalidToken", err)
	}

	f.clock.Advance(31 * time.Minute)
	if _, err := f.service.Introspect(ctx, login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("introspect expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_SwapCodec_InvalidatesTokens(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	ctx := context.Background()
	login, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "secret"}, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := token.NewCodec("rotated-secret", "HS256", 30*time.Minute, 7*24*time.Hour, f.clock.Now)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	f.service.SwapCodec(next)

	if _, err := f.service.Introspect(ctx, login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old access token after swap: err = %v, want ErrInvalidToken", err)
	}
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old refresh token after swap: err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "old-password", domain.StatusActive)

	ctx := context.Background()

	err := f.service.ChangePassword(ctx, "admin01", &dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: err = %v, want ErrInvalidCredentials", err)
	}

	err = f.service.ChangePassword(ctx, "admin01", &dto.ChangePasswordRequest{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// Old password out, new one in
	if _, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "old-password"}, "10.0.0.1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works: err = %v", err)
	}
	if _, err := f.service.Login(ctx, &dto.LoginRequest{UserID: "admin01", Password: "new-password"}, "10.0.0.1", ""); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if err := f.service.ChangePassword(ctx, "nobody", &dto.ChangePasswordRequest{
		CurrentPassword: "x",
		NewPassword:     "y",
	}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestAuthService_GetUser(t *testing.T) {
	f := newAuthFixture(t, AuthServiceConfig{})
	f.addUser(t, "admin01", "secret", domain.StatusActive)

	u, err := f.service.GetUser(context.Background(), "admin01")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.UserID != "admin01" {
		t.Errorf("user_id = %q", u.UserID)
	}

	if _, err := f.service.GetUser(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
