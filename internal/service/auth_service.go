package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/moon4656/skyboot-core/internal/cache"
	"github.com/moon4656/skyboot-core/internal/domain"
	"github.com/moon4656/skyboot-core/internal/dto"
	"github.com/moon4656/skyboot-core/internal/idgen"
	"github.com/moon4656/skyboot-core/internal/logsink"
	"github.com/moon4656/skyboot-core/internal/password"
	"github.com/moon4656/skyboot-core/internal/repository"
	"github.com/moon4656/skyboot-core/internal/token"
	"github.com/moon4656/skyboot-core/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials covers unknown user, wrong password, and
	// inactive account. Callers must not distinguish among them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers every token verification failure
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserNotFound is returned by profile reads for a deleted principal
	ErrUserNotFound = errors.New("user not found")
)

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	LockThreshold   int
	RefreshRotation bool
}

// AuthService defines the authentication operations
type AuthService interface {
	// Login authenticates a user and issues a token pair
	Login(ctx context.Context, req *dto.LoginRequest, sourceIP, userAgent string) (*dto.LoginResponse, error)
	// Refresh exchanges a refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error)
	// Introspect verifies an access token and returns session claims
	Introspect(ctx context.Context, accessToken string) (*domain.SessionClaims, error)
	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	// ChangePassword replaces the caller's password after verifying the
	// current one
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// SwapCodec atomically replaces the token codec; used for secret
	// rotation, which invalidates all outstanding tokens
	SwapCodec(codec *token.Codec)
}

type authService struct {
	users    repository.UserStore
	loginLog *logsink.Sink[*domain.LoginLogEntry]
	hasher   *password.Hasher
	codec    atomic.Pointer[token.Codec]
	replay   cache.ReplayCache
	ids      *idgen.Generator
	config   AuthServiceConfig
	log      *logger.Logger
}

// NewAuthService creates an AuthService. replay may be nil when rotation
// mode is off.
func NewAuthService(
	users repository.UserStore,
	loginLog *logsink.Sink[*domain.LoginLogEntry],
	hasher *password.Hasher,
	codec *token.Codec,
	replay cache.ReplayCache,
	ids *idgen.Generator,
	cfg AuthServiceConfig,
	log *logger.Logger,
) AuthService {
	s := &authService{
		users:    users,
		loginLog: loginLog,
		hasher:   hasher,
		replay:   replay,
		ids:      ids,
		config:   cfg,
		log:      log,
	}
	s.codec.Store(codec)
	return s
}

// SwapCodec atomically replaces the token codec
func (s *authService) SwapCodec(codec *token.Codec) {
	s.codec.Swap(codec)
	s.log.Info("token codec swapped, outstanding tokens invalidated")
}

// Login authenticates a user. Exactly one log entry is appended per call,
// whatever the outcome.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, sourceIP, userAgent string) (*dto.LoginResponse, error) {
	entry := &domain.LoginLogEntry{
		UserID:        req.UserID,
		SourceIP:      sourceIP,
		ConnectMethod: "API",
		CreatedAt:     s.ids.Now(),
	}
	defer func() {
		entry.LogID = s.ids.NewLogID()
		s.loginLog.Append(entry)
	}()

	user, err := s.users.GetByUserID(ctx, req.UserID)
	if err != nil {
		entry.ErrorFlag = true
		entry.ErrorCode = "ERROR"
		s.log.Error("login lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}
	if user == nil {
		// Burn the same bcrypt work as a wrong password so the
		// response time does not reveal that the account is missing.
		s.hasher.VerifyDummy(req.Password)
		entry.ErrorFlag = true
		entry.ErrorCode = domain.LoginErrNoUser
		s.log.Warn("login for unknown user", zap.String("user_id", req.UserID), zap.String("ip", sourceIP))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.hasher.VerifyDummy(req.Password)
		entry.ErrorFlag = true
		entry.ErrorCode = domain.LoginErrInactive
		s.log.Warn("login for inactive account",
			zap.String("user_id", user.UserID),
			zap.String("status", string(user.StatusCode)))
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		count, lockErr := s.users.IncrementLock(ctx, user.UserID, s.config.LockThreshold)
		if lockErr != nil {
			s.log.Error("lock increment failed", zap.String("user_id", user.UserID), zap.Error(lockErr))
		}
		entry.ErrorFlag = true
		entry.ErrorCode = domain.LoginErrBadPwd
		s.log.Warn("login with wrong password",
			zap.String("user_id", user.UserID),
			zap.Int("lock_count", count))
		return nil, ErrInvalidCredentials
	}

	if user.LockCount > 0 {
		if err := s.users.ResetLock(ctx, user.UserID); err != nil {
			s.log.Error("lock reset failed", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}

	codec := s.codec.Load()
	accessToken, err := codec.IssueAccess(user.UserID, user.Email, user.GroupID)
	if err != nil {
		entry.ErrorFlag = true
		entry.ErrorCode = "ERROR"
		return nil, err
	}
	refreshToken, err := codec.IssueRefresh(user.UserID, user.GroupID)
	if err != nil {
		entry.ErrorFlag = true
		entry.ErrorCode = "ERROR"
		return nil, err
	}

	s.log.Info("login succeeded", zap.String("user_id", user.UserID), zap.String("ip", sourceIP))

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(codec.AccessTTL().Seconds()),
		UserInfo:     toUserInfo(user),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The principal
// is re-read so a deactivated account stops refreshing immediately.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	codec := s.codec.Load()

	claims, err := codec.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		s.log.Warn("refresh token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByUserID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		s.log.Warn("refresh for missing or inactive account", zap.String("user_id", claims.UserID))
		return nil, ErrInvalidToken
	}

	resp := &dto.RefreshResponse{
		TokenType: "bearer",
		ExpiresIn: int64(codec.AccessTTL().Seconds()),
	}

	if s.config.RefreshRotation && s.replay != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		first, err := s.replay.MarkUsed(ctx, refreshToken, remaining)
		if err != nil {
			return nil, err
		}
		if !first {
			s.log.Warn("refresh token replay detected", zap.String("user_id", claims.UserID))
			return nil, ErrInvalidToken
		}
		rotated, err := codec.IssueRefresh(user.UserID, user.GroupID)
		if err != nil {
			return nil, err
		}
		resp.RefreshToken = rotated
	}

	accessToken, err := codec.IssueAccess(user.UserID, user.Email, user.GroupID)
	if err != nil {
		return nil, err
	}
	resp.AccessToken = accessToken

	return resp, nil
}

// Introspect verifies an access token into session claims
func (s *authService) Introspect(_ context.Context, accessToken string) (*domain.SessionClaims, error) {
	claims, err := s.codec.Load().Verify(accessToken, token.TypeAccess)
	if err != nil {
		s.log.Warn("access token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	return &domain.SessionClaims{
		UserID:          claims.UserID,
		Email:           claims.Email,
		GroupID:         claims.GroupID,
		AuthenticatedAt: claims.IssuedAt.Time,
	}, nil
}

// GetUser retrieves a user by ID
func (s *authService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the
// current one
func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.users.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.log.Info("password changed", zap.String("user_id", userID))
	return nil
}

func toUserInfo(user *domain.User) dto.UserInfo {
	return dto.UserInfo{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		GroupID:     user.GroupID,
		OrgID:       user.OrgID,
	}
}
