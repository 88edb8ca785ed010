package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/todocloud/auth-service/config"
	"github.com/todocloud/auth-service/internal/auth/domain"
	"github.com/todocloud/auth-service/internal/auth/dto"
	"github.com/todocloud/auth-service/internal/auth/service"
	autherror "github.com/todocloud/auth-service/internal/errors"
	"github.com/todocloud/auth-service/internal/mocks"
	"github.com/todocloud/auth-service/pkg/constant"
)

type fakeLimiter struct {
	allowed  bool
	failures []string
	resets   []string
}

func (f *fakeLimiter) Allow(string) bool { return f.allowed }
func (f *fakeLimiter) RecordFailure(key string) {
	f.failures = append(f.failures, key)
}
func (f *fakeLimiter) Reset(key string) { f.resets = append(f.resets, key) }

func testConfig() *config.Config {
	return &config.Config{
		BcryptCost:             bcrypt.MinCost,
		MaxActiveRefreshTokens: 5,
	}
}

func hashPassword(t *testing.T, plaintext string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func verifiedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	return &domain.User{
		ID:           "user-123",
		Email:        "test@example.com",
		PasswordHash: hashPassword(t, password),
		Role:         constant.RoleUser,
		IsVerified:   true,
	}
}

// expectMint wires the expectations for the shared minting path used by
// login, OAuth and refresh.
func expectMint(mockRepo *mocks.MockUserRepository, mockTokens *mocks.MockTokenGenerator, user *domain.User, refreshToken string) {
	now := time.Now()
	mockTokens.EXPECT().IssueAccessToken(user, gomock.Any()).
		Return("access-token", now.Add(15*time.Minute), "access-jti", nil)
	mockTokens.EXPECT().IssueRefreshToken(user).
		Return(refreshToken, now.Add(30*24*time.Hour), "refresh-jti", nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(1, nil)
}

func TestSessionService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	input := dto.RegisterInput{
		Email:     "test@example.com",
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
	}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	user, err := s.Register(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, input.Email, user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.Equal(t, constant.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	assert.NotZero(t, user.CreatedAt)
}

func TestSessionService_Register_EmailAlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	input := dto.RegisterInput{Email: "test@example.com", Password: "password123"}
	existing := &domain.User{ID: "existing-id", Email: input.Email}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(existing, nil)

	user, err := s.Register(context.Background(), input)

	assert.ErrorIs(t, err, autherror.ErrEmailAlreadyInUse)
	assert.Nil(t, user)
}

func TestSessionService_Register_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	expectedError := errors.New("database error")
	mockRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, expectedError)

	user, err := s.Register(context.Background(), dto.RegisterInput{Email: "x@example.com", Password: "p"})

	assert.Equal(t, expectedError, err)
	assert.Nil(t, user)
}

func TestSessionService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	limiter := &fakeLimiter{allowed: true}
	s := service.NewSessionService(mockRepo, mockTokens, limiter, testConfig(), nil)

	user := verifiedUser(t, "password123")
	input := dto.LoginInput{
		Email:       user.Email,
		Password:    "password123",
		Fingerprint: "fp-1",
		IPAddress:   "203.0.113.7",
		UserAgent:   "Mozilla/5.0",
	}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(user, nil)
	now := time.Now()
	mockTokens.EXPECT().IssueAccessToken(user, "fp-1").
		Return("access-token", now.Add(15*time.Minute), "access-jti", nil)
	mockTokens.EXPECT().IssueRefreshToken(user).
		Return("refresh-token", now.Add(30*24*time.Hour), "refresh-jti", nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			assert.Equal(t, user.ID, rt.UserID)
			assert.Equal(t, "refresh-token", rt.Token)
			assert.Equal(t, "fp-1", rt.DeviceFingerprint)
			assert.Equal(t, "203.0.113.7", rt.IPAddress)
			assert.Equal(t, "Mozilla/5.0", rt.UserAgent)
			assert.False(t, rt.Revoked)
			return nil
		})
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(1, nil)

	pair, err := s.Login(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "access-token", pair.AccessToken)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
	assert.WithinDuration(t, now.Add(15*time.Minute), pair.AccessExpiresAt, time.Second)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), pair.RefreshExpiresAt, time.Second)
	assert.Equal(t, []string{user.Email + "|" + input.IPAddress}, limiter.resets)
	assert.Empty(t, limiter.failures)
}

// Unknown email and wrong password must be indistinguishable.
func TestSessionService_Login_AntiEnumeration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	user := verifiedUser(t, "correct-password")

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "unknown@example.com").Return(nil, nil)
	_, errUnknown := s.Login(context.Background(), dto.LoginInput{Email: "unknown@example.com", Password: "anything"})

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	_, errWrongPassword := s.Login(context.Background(), dto.LoginInput{Email: user.Email, Password: "wrong-password"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPassword)
	assert.Equal(t, errUnknown, errWrongPassword)
	assert.Equal(t, errUnknown.Error(), errWrongPassword.Error())
	assert.ErrorIs(t, errUnknown, autherror.ErrInvalidCredentials)
}

func TestSessionService_Login_RecordsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	limiter := &fakeLimiter{allowed: true}
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), limiter, testConfig(), nil)

	mockRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := s.Login(context.Background(), dto.LoginInput{Email: "x@example.com", Password: "p", IPAddress: "1.2.3.4"})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
	assert.Equal(t, []string{"x@example.com|1.2.3.4"}, limiter.failures)
}

func TestSessionService_Login_Throttled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	limiter := &fakeLimiter{allowed: false}
	s := service.NewSessionService(mocks.NewMockUserRepository(ctrl), mocks.NewMockTokenGenerator(ctrl), limiter, testConfig(), nil)

	_, err := s.Login(context.Background(), dto.LoginInput{Email: "x@example.com", Password: "p"})

	assert.ErrorIs(t, err, autherror.ErrTooManyLoginAttempts)
}

func TestSessionService_Login_Unverified(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	user := verifiedUser(t, "password123")
	user.IsVerified = false

	mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)

	_, err := s.Login(context.Background(), dto.LoginInput{Email: user.Email, Password: "password123"})

	assert.ErrorIs(t, err, autherror.ErrEmailNotVerified)
}

func TestSessionService_Refresh_RotatesToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	user := verifiedUser(t, "password123")
	record := &domain.RefreshToken{
		ID:                "rt-1",
		UserID:            user.ID,
		Token:             "old-refresh",
		DeviceFingerprint: "fp-1",
		IPAddress:         "203.0.113.7",
		UserAgent:         "Mozilla/5.0",
		ExpiresAt:         time.Now().Add(24 * time.Hour),
	}

	mockTokens.EXPECT().VerifyRefreshToken("old-refresh").Return(&service.SessionClaims{}, nil)
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), "old-refresh").Return(record, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "rt-1").Return(true, nil)
	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

	now := time.Now()
	mockTokens.EXPECT().IssueAccessToken(user, "fp-1").
		Return("new-access", now.Add(15*time.Minute), "a-jti", nil)
	mockTokens.EXPECT().IssueRefreshToken(user).
		Return("new-refresh", now.Add(30*24*time.Hour), "r-jti", nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			// The new grant inherits the original binding metadata.
			assert.Equal(t, "fp-1", rt.DeviceFingerprint)
			assert.Equal(t, "203.0.113.7", rt.IPAddress)
			assert.Equal(t, "Mozilla/5.0", rt.UserAgent)
			return nil
		})
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(2, nil)

	pair, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "old-refresh"})

	require.NoError(t, err)
	assert.Equal(t, "new-refresh", pair.RefreshToken)
	assert.NotEqual(t, record.Token, pair.RefreshToken)
}

// Replaying a rotated token fails and revokes the whole user session set.
func TestSessionService_Refresh_ReuseDetected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	revoked := &domain.RefreshToken{ID: "rt-1", UserID: "user-123", Token: "stolen", Revoked: true}

	mockTokens.EXPECT().VerifyRefreshToken("stolen").Return(&service.SessionClaims{}, nil)
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), "stolen").Return(nil, nil)
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "stolen").Return(revoked, nil)
	mockRepo.EXPECT().RevokeAllByUser(gomock.Any(), "user-123").Return(nil)

	_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "stolen"})

	assert.ErrorIs(t, err, autherror.ErrTokenReuseDetected)
	assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
}

func TestSessionService_Refresh_UnknownToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	mockTokens.EXPECT().VerifyRefreshToken("ghost").Return(&service.SessionClaims{}, nil)
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), "ghost").Return(nil, nil)
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "ghost").Return(nil, nil)

	_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "ghost"})

	assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
	assert.NotErrorIs(t, err, autherror.ErrTokenReuseDetected)
}

func TestSessionService_Refresh_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mocks.NewMockUserRepository(ctrl), mockTokens, nil, testConfig(), nil)

	mockTokens.EXPECT().VerifyRefreshToken("forged").Return(nil, autherror.ErrInvalidOrExpiredToken)

	_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "forged"})

	assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
}

// The conditional revoke serializes concurrent rotations; the loser fails.
func TestSessionService_Refresh_LostRotationRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	record := &domain.RefreshToken{ID: "rt-1", UserID: "user-123", Token: "contested"}

	mockTokens.EXPECT().VerifyRefreshToken("contested").Return(&service.SessionClaims{}, nil)
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), "contested").Return(record, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "rt-1").Return(false, nil)

	_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "contested"})

	assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
}

func TestSessionService_Refresh_FingerprintMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)

	cfg := testConfig()
	cfg.FingerprintStrict = true
	s := service.NewSessionService(mockRepo, mockTokens, nil, cfg, nil)

	record := &domain.RefreshToken{ID: "rt-1", UserID: "user-123", Token: "tok", DeviceFingerprint: "fp-original"}

	mockTokens.EXPECT().VerifyRefreshToken("tok").Return(&service.SessionClaims{}, nil)
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), "tok").Return(record, nil)

	_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: "tok", Fingerprint: "fp-other"})

	assert.ErrorIs(t, err, autherror.ErrFingerprintMismatch)
}

func TestSessionService_ValidateAccessToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	t.Run("success refetches user", func(t *testing.T) {
		user := verifiedUser(t, "p")
		claims := &service.SessionClaims{}
		claims.Subject = user.ID

		mockTokens.EXPECT().VerifyAccessToken("good").Return(claims, nil)
		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		got, err := s.ValidateAccessToken(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("user deleted", func(t *testing.T) {
		claims := &service.SessionClaims{}
		claims.Subject = "gone"

		mockTokens.EXPECT().VerifyAccessToken("orphan").Return(claims, nil)
		mockRepo.EXPECT().GetByID(gomock.Any(), "gone").Return(nil, nil)

		got, err := s.ValidateAccessToken(context.Background(), "orphan")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
	})

	t.Run("invalid token", func(t *testing.T) {
		mockTokens.EXPECT().VerifyAccessToken("bad").Return(nil, autherror.ErrInvalidOrExpiredToken)

		got, err := s.ValidateAccessToken(context.Background(), "bad")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
	})
}

func TestSessionService_RevokeRefreshToken_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	record := &domain.RefreshToken{ID: "rt-1", Token: "tok"}

	// First revoke flips the flag.
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "tok").Return(record, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "rt-1").Return(true, nil)
	require.NoError(t, s.RevokeRefreshToken(context.Background(), "tok"))

	// Second revoke is a no-op, not an error.
	already := &domain.RefreshToken{ID: "rt-1", Token: "tok", Revoked: true}
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "tok").Return(already, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "rt-1").Return(false, nil)
	require.NoError(t, s.RevokeRefreshToken(context.Background(), "tok"))

	// Revoking an absent token is a no-op too.
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "missing").Return(nil, nil)
	require.NoError(t, s.RevokeRefreshToken(context.Background(), "missing"))
}

func TestSessionService_RevokeAllUserRefreshTokens(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	s := service.NewSessionService(mockRepo, mocks.NewMockTokenGenerator(ctrl), nil, testConfig(), nil)

	mockRepo.EXPECT().RevokeAllByUser(gomock.Any(), "user-123").Return(nil)

	assert.NoError(t, s.RevokeAllUserRefreshTokens(context.Background(), "user-123"))
}

func TestSessionService_CreateTokensForUser_PrunesExcess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewSessionService(mockRepo, mockTokens, nil, testConfig(), nil)

	user := verifiedUser(t, "p")

	now := time.Now()
	mockTokens.EXPECT().IssueAccessToken(user, gomock.Any()).
		Return("a", now.Add(15*time.Minute), "ja", nil)
	mockTokens.EXPECT().IssueRefreshToken(user).
		Return("r", now.Add(30*24*time.Hour), "jr", nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(6, nil)
	mockRepo.EXPECT().DeleteOldestByUser(gomock.Any(), user.ID).Return(nil)

	_, err := s.CreateTokensForUser(context.Background(), user, domain.TokenMetadata{})
	require.NoError(t, err)
}

// End-to-end rotation invariant against the real codec: refresh once, then
// every replay of the original token must fail even though its signature is
// still valid.
func TestSessionService_RotationInvariant_WithRealCodec(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	tokens := service.NewTokenService("as", "rs", 15, 43200, "aud", "iss")
	s := service.NewSessionService(mockRepo, tokens, nil, testConfig(), nil)

	user := verifiedUser(t, "p")

	// Mint the original pair.
	var originalRefresh string
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			originalRefresh = rt.Token
			return nil
		})
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(1, nil)

	pair, err := s.CreateTokensForUser(context.Background(), user, domain.TokenMetadata{})
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, originalRefresh)

	// First refresh succeeds and rotates.
	record := &domain.RefreshToken{ID: "rt-1", UserID: user.ID, Token: originalRefresh}
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), originalRefresh).Return(record, nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "rt-1").Return(true, nil)
	mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().CountActiveByUser(gomock.Any(), user.ID).Return(1, nil)

	rotated, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: originalRefresh})
	require.NoError(t, err)
	assert.NotEqual(t, originalRefresh, rotated.RefreshToken)

	// Replay: the signature still verifies, but the record is revoked.
	revokedRecord := &domain.RefreshToken{ID: "rt-1", UserID: user.ID, Token: originalRefresh, Revoked: true}
	mockRepo.EXPECT().GetActiveRefreshToken(gomock.Any(), originalRefresh).Return(nil, nil)
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), originalRefresh).Return(revokedRecord, nil)
	mockRepo.EXPECT().RevokeAllByUser(gomock.Any(), user.ID).Return(nil)

	_, err = s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: originalRefresh})
	assert.ErrorIs(t, err, autherror.ErrInvalidOrExpiredToken)
}
