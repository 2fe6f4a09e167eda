package dto

import (
	"time"

	"github.com/google/uuid"
)

type LinkedProviderDTO struct {
	Provider  string    `json:"provider"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	LinkedAt  time.Time `json:"linked_at"`
}

type ProfileResponse struct {
	Id            uuid.UUID           `json:"id"`
	Email         string              `json:"email"`
	FullName      string              `json:"full_name"`
	Role          string              `json:"role"`
	Status        string              `json:"status"`
	EmailVerified bool                `json:"email_verified"`
	AvatarURL     *string             `json:"avatar_url"`
	HasPassword   bool                `json:"has_password"`
	Providers     []LinkedProviderDTO `json:"providers"`
	LastLoginAt   *time.Time          `json:"last_login_at"`
	CreatedAt     time.Time           `json:"created_at"`
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

type UserListQuery struct {
	Search string
	Role   string
	Status string
	Page   int
	Limit  int
}

// UserListItem is one row of the admin user list.
type UserListItem struct {
	Id            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type AdminUserDetail struct {
	ProfileResponse
	Wallet *WalletResponse `json:"wallet"`
}
