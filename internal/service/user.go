package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/0xfdc/foodgram/internal/models"
	"github.com/0xfdc/foodgram/internal/types"
)

// UserService serves user profile views and the caller's avatar.
type UserService struct {
	db     *gorm.DB
	images *ImageService
}

func NewUserService(db *gorm.DB, images *ImageService) *UserService {
	return &UserService{db: db, images: images}
}

func (s *UserService) userView(ctx context.Context, user *models.User, viewerID *uuid.UUID) (*types.UserView, error) {
	isSubscribed := false
	if viewerID != nil {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("user_id = ? AND target_id = ?", *viewerID, user.ID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		isSubscribed = count > 0
	}
	return &types.UserView{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
		Avatar:       user.AvatarURL,
	}, nil
}

// Get returns one user's view relative to the viewer.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID, viewerID *uuid.UUID) (*types.UserView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.userView(ctx, &user, viewerID)
}

// List returns a page of user views ordered by username, with the total.
func (s *UserService) List(ctx context.Context, page, limit int, viewerID *uuid.UUID) ([]types.UserView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 6
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	views := make([]types.UserView, len(users))
	for i := range users {
		view, err := s.userView(ctx, &users[i], viewerID)
		if err != nil {
			return nil, 0, err
		}
		views[i] = *view
	}
	return views, total, nil
}

// SetAvatar stores an inline base64 avatar and records its URL on the
// caller's own profile.
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, payload string) (string, error) {
	if payload == "" {
		return "", validationErrorf("avatar", "required")
	}
	url, err := s.images.SaveAvatar(ctx, payload)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("avatar_url", url).Error
	if err != nil {
		return "", err
	}
	return url, nil
}

// ClearAvatar removes the caller's avatar reference.
func (s *UserService) ClearAvatar(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("avatar_url", "").Error
}
