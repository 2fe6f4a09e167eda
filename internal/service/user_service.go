package service

import (
	"context"
	"strings"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IUserService {
	return &userService{uowFactory: uowFactory, logger: log}
}

func toProfile(user *entity.User, providers []*entity.UserProvider) dto.ProfileResponse {
	linked := make([]dto.LinkedProviderDTO, 0, len(providers))
	for _, p := range providers {
		linked = append(linked, dto.LinkedProviderDTO{Provider: p.ProviderName, AvatarURL: p.AvatarURL, LinkedAt: p.CreatedAt})
	}
	return dto.ProfileResponse{
		Id:            user.Id,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          string(user.Role),
		Status:        string(user.Status),
		EmailVerified: user.EmailVerified,
		AvatarURL:     user.AvatarURL,
		HasPassword:   user.PasswordHash != nil,
		Providers:     linked,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
	}
}

// loadProfile reads the user and the linked identities through uow.
func loadProfile(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*dto.ProfileResponse, error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	providers, err := uow.UserRepository().FindUserProviders(ctx, userId)
	if err != nil {
		return nil, err
	}
	res := toProfile(user, providers)
	return &res, nil
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.ProfileResponse, error) {
	return loadProfile(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
}

// UpdateProfile changes only the fields present in req. An empty avatar URL clears it.
func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if len(name) < 2 {
			return nil, apperror.BadRequest("Full name must be at least 2 characters")
		}
		user.FullName = name
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		switch {
		case avatar == "":
			user.AvatarURL = nil
		case strings.HasPrefix(avatar, "https://") || strings.HasPrefix(avatar, "http://"):
			user.AvatarURL = &avatar
		default:
			return nil, apperror.BadRequest("Avatar URL must be an http(s) link")
		}
	}

	if err := uow.UserRepository().UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("USER", "Profile updated", map[string]interface{}{"user_id": userId.String()})

	return s.GetProfile(ctx, userId)
}
