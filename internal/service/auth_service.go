package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/pkg/mailer"
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/database"
	"ai-studytool-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL       = 24 * time.Hour
	refreshTokenTTL      = 24 * time.Hour
	rememberMeTTL        = 30 * 24 * time.Hour
	verificationCodeTTL  = 10 * time.Minute
	verificationCooldown = time.Minute
	passwordResetTTL     = time.Hour
	passwordResetWait    = 5 * time.Minute
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest, ipAddress, userAgent string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, userId uuid.UUID, refreshToken string) error
	VerifyEmail(ctx context.Context, userId uuid.UUID, req *dto.VerifyEmailRequest) error
	ResendVerification(ctx context.Context, userId uuid.UUID) error
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

type authService struct {
	uowFactory    unitofwork.RepositoryFactory
	walletService IWalletService
	cache         *credit.ConfigCache
	publisher     IPublisherService
	emailService  mailer.IEmailService
	clock         credit.Clock
	logger        logger.ILogger
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	walletService IWalletService,
	cache *credit.ConfigCache,
	publisher IPublisherService,
	emailService mailer.IEmailService,
	clock credit.Clock,
	log logger.ILogger,
) IAuthService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	return &authService{
		uowFactory:    uowFactory,
		walletService: walletService,
		cache:         cache,
		publisher:     publisher,
		emailService:  emailService,
		clock:         clock,
		logger:        log,
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func toUserDTO(user *entity.User) dto.UserDTO {
	return dto.UserDTO{
		Id:            user.Id,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		AvatarURL:     user.AvatarURL,
	}
}

// issueSession stores a new refresh token through uow and signs an access token for user.
func issueSession(ctx context.Context, uow unitofwork.UnitOfWork, now time.Time, user *entity.User, ttl time.Duration, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	raw := uuid.New().String()
	err := uow.UserRepository().CreateRefreshToken(ctx, &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(ttl),
		IpAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	access, err := serverutils.IssueToken(user.Id, string(user.Role), accessTokenTTL)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{AccessToken: access, RefreshToken: raw, User: toUserDTO(user)}, nil
}

func publishRegistered(ctx context.Context, publisher IPublisherService, log logger.ILogger, user *entity.User, dailyLimit int) {
	if publisher == nil {
		return
	}
	event := events.New(events.TypeUserRegistered, map[string]interface{}{
		"user_id":            user.Id.String(),
		"email":              user.Email,
		"full_name":          user.FullName,
		"daily_free_credits": dailyLimit,
	})
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("AUTH", "Failed to publish USER_REGISTERED", map[string]interface{}{"error": err.Error()})
	}
}

// Register creates the user, the wallet and the first verification code in one transaction.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Check for existing user
	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("Email already registered")
	}

	// 2. Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: &hashStr,
		Role:         entity.UserRoleUser,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. User + wallet + verification code
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.walletService.CreateWallet(ctx, uow, user.Id); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().CreateEmailVerificationToken(ctx, &entity.EmailVerificationToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Code:      code,
		ExpiresAt: now.Add(verificationCodeTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	dailyLimit := s.cache.DailyFreeLimit(ctx)
	s.logger.Info("AUTH", "User registered", map[string]interface{}{"user_id": user.Id.String()})

	// The account exists either way; the code can be resent.
	if err := s.emailService.SendVerificationCode(user.Email, code); err != nil {
		s.logger.Warn("AUTH", "Verification email not sent", map[string]interface{}{"user_id": user.Id.String(), "error": err.Error()})
	}

	publishRegistered(ctx, s.publisher, s.logger, user, dailyLimit)

	return &dto.RegisterResponse{
		Id:    user.Id,
		Email: user.Email,
		Wallet: &dto.WalletResponse{
			FreeCredits:  dailyLimit,
			TotalCredits: dailyLimit,
			DailyLimit:   dailyLimit,
		},
	}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Check if user exists
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	// 2. Compare passwords
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	// 3. Blocked users keep their data but cannot sign in
	if user.Status == entity.UserStatusBlocked {
		return nil, apperror.Forbidden("User account is blocked")
	}

	// 4. Session
	ttl := refreshTokenTTL
	if req.RememberMe {
		ttl = rememberMeTTL
	}
	now := s.clock.Now()

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().TouchLastLogin(ctx, user.Id, now); err != nil {
		return nil, err
	}
	res, err := issueSession(ctx, uow, now, user, ttl, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh rotates a refresh token. The replacement keeps the lifetime the old one was issued with.
func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.clock.Now()

	token, err := uow.UserRepository().FindRefreshToken(ctx, specification.ByTokenHash{Hash: hashToken(req.RefreshToken)})
	if err != nil {
		return nil, err
	}
	if token == nil || token.Revoked || !now.Before(token.ExpiresAt) {
		return nil, apperror.Unauthorized("Invalid or expired refresh token")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: token.UserId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthorized("Invalid or expired refresh token")
	}
	if user.Status == entity.UserStatusBlocked {
		return nil, apperror.Forbidden("User account is blocked")
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	revoked, err := uow.UserRepository().RevokeRefreshToken(ctx, token.Id)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// Lost a race with another refresh or a logout.
		return nil, apperror.Unauthorized("Invalid or expired refresh token")
	}
	res, err := issueSession(ctx, uow, now, user, token.ExpiresAt.Sub(token.CreatedAt), ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// Logout revokes the caller's refresh token. Unknown tokens are ignored.
func (s *authService) Logout(ctx context.Context, userId uuid.UUID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	token, err := uow.UserRepository().FindRefreshToken(ctx,
		specification.ByTokenHash{Hash: hashToken(refreshToken)},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil || token == nil {
		return err
	}
	_, err = uow.UserRepository().RevokeRefreshToken(ctx, token.Id)
	return err
}

func (s *authService) VerifyEmail(ctx context.Context, userId uuid.UUID, req *dto.VerifyEmailRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.clock.Now()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}
	if user.EmailVerified {
		return apperror.BadRequest("Email is already verified")
	}

	token, err := uow.UserRepository().FindEmailVerificationToken(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByCode{Code: req.Code},
		specification.ExpiresAfter{Time: now},
	)
	if err != nil {
		return err
	}
	if token == nil {
		return apperror.BadRequest("Invalid or expired verification code")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().MarkEmailVerified(ctx, userId, now); err != nil {
		return err
	}
	if err := uow.UserRepository().DeleteEmailVerificationTokens(ctx, userId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info("AUTH", "Email verified", map[string]interface{}{"user_id": userId.String()})
	return nil
}

// ResendVerification replaces any outstanding code, at most once a minute.
func (s *authService) ResendVerification(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.clock.Now()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}
	if user.EmailVerified {
		return apperror.BadRequest("Email is already verified")
	}

	recent, err := uow.UserRepository().FindEmailVerificationToken(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.CreatedAfter{Time: now.Add(-verificationCooldown)},
	)
	if err != nil {
		return err
	}
	if recent != nil {
		return apperror.TooManyRequests("Please wait before requesting another code")
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().DeleteEmailVerificationTokens(ctx, userId); err != nil {
		return err
	}
	if err := uow.UserRepository().CreateEmailVerificationToken(ctx, &entity.EmailVerificationToken{
		Id:        uuid.New(),
		UserId:    userId,
		Code:      code,
		ExpiresAt: now.Add(verificationCodeTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if err := s.emailService.SendVerificationCode(user.Email, code); err != nil {
		return &apperror.Error{Code: http.StatusBadGateway, Type: "mail_error", Message: "Could not send the verification email", Err: err}
	}
	return nil
}

// ForgotPassword mails a reset link. Unknown and password-less accounts get the same silent success.
func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.clock.Now()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
	if err != nil {
		return err
	}
	if user == nil || user.PasswordHash == nil {
		return nil
	}

	recent, err := uow.UserRepository().FindPasswordResetToken(ctx,
		specification.UserOwnedBy{UserID: user.Id},
		specification.CreatedAfter{Time: now.Add(-passwordResetWait)},
	)
	if err != nil {
		return err
	}
	if recent != nil {
		return apperror.TooManyRequests("A reset link was sent recently. Please check your inbox")
	}

	raw := uuid.New().String()

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().DeletePasswordResetTokens(ctx, user.Id); err != nil {
		return err
	}
	if err := uow.UserRepository().CreatePasswordResetToken(ctx, &entity.PasswordResetToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(passwordResetTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if err := s.emailService.SendPasswordReset(user.Email, raw); err != nil {
		s.logger.Error("AUTH", "Password reset email not sent", map[string]interface{}{"user_id": user.Id.String(), "error": err.Error()})
	}
	return nil
}

// ResetPassword consumes the token once and signs out every existing session.
func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.clock.Now()

	token, err := uow.UserRepository().FindPasswordResetToken(ctx, specification.ByTokenHash{Hash: hashToken(req.Token)})
	if err != nil {
		return err
	}
	if token == nil || !now.Before(token.ExpiresAt) {
		return apperror.BadRequest("Invalid or expired reset link")
	}
	if token.Used {
		return apperror.BadRequest("This reset link has already been used")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: token.UserId})
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.BadRequest("Invalid or expired reset link")
	}
	if user.PasswordHash != nil && bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.NewPassword)) == nil {
		return apperror.BadRequest("New password must be different from the current one")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	consumed, err := uow.UserRepository().ConsumePasswordResetToken(ctx, token.Id)
	if err != nil {
		return err
	}
	if !consumed {
		return apperror.BadRequest("This reset link has already been used")
	}
	if err := uow.UserRepository().UpdatePassword(ctx, user.Id, string(hash)); err != nil {
		return err
	}
	if err := uow.UserRepository().RevokeAllRefreshTokens(ctx, user.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info("AUTH", "Password reset", map[string]interface{}{"user_id": user.Id.String()})
	return nil
}
