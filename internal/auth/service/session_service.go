package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/todocloud/auth-service/config"
	"github.com/todocloud/auth-service/internal/auth/domain"
	"github.com/todocloud/auth-service/internal/auth/dto"
	autherror "github.com/todocloud/auth-service/internal/errors"
	"github.com/todocloud/auth-service/pkg/constant"
)

// LoginLimiter throttles failed login attempts per key. A nil limiter
// disables throttling.
type LoginLimiter interface {
	Allow(key string) bool
	RecordFailure(key string)
	Reset(key string)
}

// SessionService drives the session lifecycle: credential login, OAuth
// minting, refresh-token rotation, validation and revocation. All authority
// lives in the repository; the service holds no session state of its own.
type SessionService struct {
	repo    domain.UserRepository
	tokens  TokenGenerator
	limiter LoginLimiter
	cfg     *config.Config
	logger  *zap.Logger
}

func NewSessionService(repo domain.UserRepository, tokens TokenGenerator, limiter LoginLimiter, cfg *config.Config, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *SessionService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), cost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: string(hashed),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         constant.RoleUser,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// FindUserByEmail exposes the store lookup for callers that established
// identity elsewhere (OAuth callback).
func (s *SessionService) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ProvisionOAuthUser creates a password-less account for a first-time OAuth
// login. The provider already verified the email, so the flag starts true.
// The random password hash blocks credential login for the account.
func (s *SessionService) ProvisionOAuthUser(ctx context.Context, email, firstName, lastName string) (*domain.User, error) {
	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         constant.RoleUser,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail flips the verification flag after an out-of-band proof
// (verification link). Token delivery is not this service's concern.
func (s *SessionService) VerifyEmail(ctx context.Context, userID string) error {
	return s.repo.MarkVerified(ctx, userID)
}

// Login verifies credentials and mints a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenPair, error) {
	limiterKey := input.Email + "|" + input.IPAddress
	if s.limiter != nil && !s.limiter.Allow(limiterKey) {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		if s.limiter != nil {
			s.limiter.RecordFailure(limiterKey)
		}
		return nil, autherror.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, autherror.ErrEmailNotVerified
	}

	if s.limiter != nil {
		s.limiter.Reset(limiterKey)
	}

	return s.CreateTokensForUser(ctx, user, domain.TokenMetadata{
		Fingerprint: input.Fingerprint,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
	})
}

// CreateTokensForUser mints a pair without a password check. Callers must
// have established identity out-of-band (OAuth callback).
func (s *SessionService) CreateTokensForUser(ctx context.Context, user *domain.User, md domain.TokenMetadata) (*dto.TokenPair, error) {
	accessToken, accessExpiresAt, _, err := s.tokens.IssueAccessToken(user, md.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, refreshExpiresAt, _, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	now := time.Now()
	record := &domain.RefreshToken{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Token:             refreshToken,
		DeviceFingerprint: md.Fingerprint,
		IPAddress:         md.IPAddress,
		UserAgent:         md.UserAgent,
		ExpiresAt:         refreshExpiresAt,
		CreatedAt:         now,
		Revoked:           false,
	}
	if err := s.repo.StoreRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	s.pruneActiveTokens(ctx, user.ID)

	return &dto.TokenPair{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented token's record is revoked
// and a new pair is minted inheriting the original grant metadata. A token
// that was already rotated fails here even when its signature is still good;
// the database is the source of truth for revocation.
func (s *SessionService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenPair, error) {
	if _, err := s.tokens.VerifyRefreshToken(input.RefreshToken); err != nil {
		return nil, err
	}

	record, err := s.repo.GetActiveRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, s.classifyInactiveToken(ctx, input.RefreshToken)
	}

	if record.DeviceFingerprint != "" && input.Fingerprint != "" && record.DeviceFingerprint != input.Fingerprint {
		if s.cfg.FingerprintStrict {
			return nil, autherror.ErrFingerprintMismatch
		}
		s.logger.Warn("refresh fingerprint mismatch",
			zap.String("user_id", record.UserID),
			zap.String("token_id", record.ID))
	}

	// Conditional revoke is the rotation serializer: of two concurrent
	// refreshes with the same token, exactly one observes the flip.
	revoked, err := s.repo.RevokeRefreshToken(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke token: %w", err)
	}
	if !revoked {
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	// Re-fetch the user so role or verification changes take effect now.
	user, err := s.repo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	return s.CreateTokensForUser(ctx, user, domain.TokenMetadata{
		Fingerprint: record.DeviceFingerprint,
		IPAddress:   record.IPAddress,
		UserAgent:   record.UserAgent,
	})
}

// classifyInactiveToken distinguishes a replayed (rotated) token from one
// that simply expired or never existed. Reuse revokes the owner's whole
// token set: a replay means the token leaked.
func (s *SessionService) classifyInactiveToken(ctx context.Context, token string) error {
	prior, err := s.repo.GetRefreshToken(ctx, token)
	if err != nil {
		return err
	}
	if prior != nil && prior.Revoked {
		s.logger.Warn("refresh token reuse detected, revoking all sessions",
			zap.String("user_id", prior.UserID),
			zap.String("token_id", prior.ID))
		if err := s.repo.RevokeAllByUser(ctx, prior.UserID); err != nil {
			s.logger.Error("failed to revoke sessions after reuse",
				zap.String("user_id", prior.UserID), zap.Error(err))
		}
		return autherror.ErrTokenReuseDetected
	}
	return autherror.ErrInvalidOrExpiredToken
}

// ValidateAccessToken verifies the signature and expiry, then re-fetches the
// user so deletions and role changes apply before natural token expiry.
func (s *SessionService) ValidateAccessToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	return user, nil
}

// RevokeRefreshToken revokes the record matching the presented token.
// Absent or already-revoked tokens are a no-op, not an error.
func (s *SessionService) RevokeRefreshToken(ctx context.Context, tokenString string) error {
	record, err := s.repo.GetRefreshToken(ctx, tokenString)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	if _, err := s.repo.RevokeRefreshToken(ctx, record.ID); err != nil {
		return err
	}
	return nil
}

// RevokeAllUserRefreshTokens is the "logout everywhere" path.
func (s *SessionService) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	return s.repo.RevokeAllByUser(ctx, userID)
}

// pruneActiveTokens keeps the active set per user bounded. Failures here are
// hygiene, not correctness; they are logged and ignored.
func (s *SessionService) pruneActiveTokens(ctx context.Context, userID string) {
	if s.cfg.MaxActiveRefreshTokens <= 0 {
		return
	}
	count, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to count active refresh tokens",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	if count > s.cfg.MaxActiveRefreshTokens {
		if err := s.repo.DeleteOldestByUser(ctx, userID); err != nil {
			s.logger.Warn("failed to delete oldest refresh token",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
}
