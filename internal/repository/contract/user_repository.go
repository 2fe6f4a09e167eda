package contract

import (
	"context"
	"time"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// UpdateProfile writes the user-editable fields (full name, avatar).
	UpdateProfile(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) error
	MarkEmailVerified(ctx context.Context, userId uuid.UUID, at time.Time) error
	TouchLastLogin(ctx context.Context, userId uuid.UUID, at time.Time) error

	// Token management lives here with the user, as the tokens have no life of their own.
	CreateEmailVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error
	FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error)
	DeleteEmailVerificationTokens(ctx context.Context, userId uuid.UUID) error

	CreatePasswordResetToken(ctx context.Context, token *entity.PasswordResetToken) error
	FindPasswordResetToken(ctx context.Context, specs ...specification.Specification) (*entity.PasswordResetToken, error)
	// ConsumePasswordResetToken marks an unused token used and reports whether it was unused.
	ConsumePasswordResetToken(ctx context.Context, id uuid.UUID) (bool, error)
	DeletePasswordResetTokens(ctx context.Context, userId uuid.UUID) error

	CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error
	FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	// RevokeRefreshToken revokes an active token and reports whether it was active.
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error)
	RevokeAllRefreshTokens(ctx context.Context, userId uuid.UUID) error

	SaveUserProvider(ctx context.Context, provider *entity.UserProvider) error
	FindUserProvider(ctx context.Context, specs ...specification.Specification) (*entity.UserProvider, error)
	FindUserProviders(ctx context.Context, userId uuid.UUID) ([]*entity.UserProvider, error)
}
