package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/database"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProfile is the subset of the userinfo response used for sign-in.
type GoogleProfile struct {
	Id            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleIdentity turns an authorization code into the signed-in Google profile.
type GoogleIdentity interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleProfile, error)
}

type googleIdentity struct {
	conf *oauth2.Config
}

func NewGoogleIdentity(clientID, clientSecret, redirectURL string) GoogleIdentity {
	return &googleIdentity{conf: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

func (g *googleIdentity) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

func (g *googleIdentity) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	resp, err := g.conf.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo: status %d: %s", resp.StatusCode, body)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("userinfo decode: %w", err)
	}
	return &profile, nil
}

type IOAuthService interface {
	GoogleLoginURL(state string) (string, error)
	GoogleSignIn(ctx context.Context, code, ipAddress, userAgent string) (*dto.LoginResponse, error)
}

type oauthService struct {
	uowFactory    unitofwork.RepositoryFactory
	identity      GoogleIdentity
	walletService IWalletService
	cache         *credit.ConfigCache
	publisher     IPublisherService
	clock         credit.Clock
	logger        logger.ILogger
}

// NewOAuthService accepts a nil identity, in which case Google sign-in reports itself unavailable.
func NewOAuthService(
	uowFactory unitofwork.RepositoryFactory,
	identity GoogleIdentity,
	walletService IWalletService,
	cache *credit.ConfigCache,
	publisher IPublisherService,
	clock credit.Clock,
	log logger.ILogger,
) IOAuthService {
	if clock == nil {
		clock = credit.SystemClock{}
	}
	return &oauthService{
		uowFactory:    uowFactory,
		identity:      identity,
		walletService: walletService,
		cache:         cache,
		publisher:     publisher,
		clock:         clock,
		logger:        log,
	}
}

func errGoogleDisabled() error {
	return apperror.New(http.StatusServiceUnavailable, "oauth_disabled", "Google sign-in is not configured")
}

func (s *oauthService) GoogleLoginURL(state string) (string, error) {
	if s.identity == nil {
		return "", errGoogleDisabled()
	}
	return s.identity.AuthCodeURL(state), nil
}

// GoogleSignIn finds the account by linked identity, then by verified email, and otherwise
// creates a verified user with a wallet. Every write happens in one transaction.
func (s *oauthService) GoogleSignIn(ctx context.Context, code, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	if s.identity == nil {
		return nil, errGoogleDisabled()
	}

	profile, err := s.identity.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("OAUTH", "Google code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, &apperror.Error{Code: http.StatusUnauthorized, Type: "unauthorized", Message: "Google sign-in failed", Err: err}
	}
	if profile.Id == "" || profile.Email == "" || !profile.VerifiedEmail {
		return nil, apperror.Unauthorized("Google account email is not verified")
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	now := s.clock.Now()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	users := uow.UserRepository()

	var user *entity.User
	link, err := users.FindUserProvider(ctx, specification.ByProvider{Name: entity.ProviderGoogle, Subject: profile.Id})
	if err != nil {
		return nil, err
	}
	if link != nil {
		if user, err = users.FindOne(ctx, specification.ByID{ID: link.UserId}); err != nil {
			return nil, err
		}
	}
	if user == nil {
		if user, err = users.FindOne(ctx, specification.ByEmail{Email: email}); err != nil {
			return nil, err
		}
		// Linking an unverified password account would hand it to whoever controls the Google login.
		if user != nil && !user.EmailVerified {
			return nil, apperror.Conflict("An account with this email exists but is not verified. Sign in with your password and verify it first")
		}
	}

	created := false
	if user == nil {
		user = &entity.User{
			Id:              uuid.New(),
			Email:           email,
			FullName:        googleDisplayName(profile),
			Role:            entity.UserRoleUser,
			Status:          entity.UserStatusActive,
			EmailVerified:   true,
			EmailVerifiedAt: &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if profile.Picture != "" {
			picture := profile.Picture
			user.AvatarURL = &picture
		}
		if err := users.Create(ctx, user); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, apperror.Conflict("Email already registered")
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		if _, err := s.walletService.CreateWallet(ctx, uow, user.Id); err != nil {
			return nil, err
		}
		created = true
	}

	if user.Status == entity.UserStatusBlocked {
		return nil, apperror.Forbidden("User account is blocked")
	}

	if err := users.SaveUserProvider(ctx, &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   entity.ProviderGoogle,
		ProviderUserId: profile.Id,
		AvatarURL:      profile.Picture,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}
	if err := users.TouchLastLogin(ctx, user.Id, now); err != nil {
		return nil, err
	}
	res, err := issueSession(ctx, uow, now, user, rememberMeTTL, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("OAUTH", "Google sign-in", map[string]interface{}{"user_id": user.Id.String(), "new_user": created})
	if created {
		publishRegistered(ctx, s.publisher, s.logger, user, s.cache.DailyFreeLimit(ctx))
	}
	return res, nil
}

func googleDisplayName(p *GoogleProfile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.SplitN(p.Email, "@", 2)[0]
}
