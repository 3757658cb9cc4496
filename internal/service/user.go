package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/backend/internal/models"
)

// UserService covers profile reads and the subscription relation.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns a page of users ordered by username, with the total count.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("username").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Subscribe adds a follower -> author relation. Self-subscription and
// duplicates are rejected.
func (s *UserService) Subscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if userID == authorID {
		return ErrSelfSubscribe
	}
	if _, err := s.Get(ctx, authorID); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadySubscribed
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadySubscribed
		}
		return err
	}
	return nil
}

// Unsubscribe removes the relation; it fails when the relation is absent.
func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if _, err := s.Get(ctx, authorID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// Subscriptions returns the authors the user follows, ordered by username.
func (s *UserService) Subscriptions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?)", s.db.Model(&models.Subscription{}).
			Select("author_id").
			Where("user_id = ?", userID))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	if err := base.
		Order("username").
		Limit(limit).Offset(offset).
		Find(&authors).Error; err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// IsSubscribed reports whether user follows author. Anonymous callers pass
// uuid.Nil and always get false.
func (s *UserService) IsSubscribed(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SubscribedSet returns the subset of authorIDs the user follows, for
// serializing lists without a query per row.
func (s *UserService) SubscribedSet(ctx context.Context, userID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool)
	if userID == uuid.Nil || len(authorIDs) == 0 {
		return set, nil
	}

	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
