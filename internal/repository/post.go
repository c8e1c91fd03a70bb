// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"mindposter/internal/models"

	"gorm.io/gorm"
)

// StatusChange carries the outcome fields written alongside a status
// transition. Nil/empty fields are left untouched.
type StatusChange struct {
	ApprovedAt      *time.Time
	PublishedAt     *time.Time
	InstagramPostID string
	RejectionReason string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByToken(ctx context.Context, token string) (*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Post, error)
	UsedThemeIDs(ctx context.Context, since time.Time) ([]string, error)
	// CompareAndSetStatus transitions the post from expected to next in a
	// single guarded UPDATE. It reports false when the post was no longer in
	// the expected status, which callers must treat as a replay.
	CompareAndSetStatus(ctx context.Context, id uint, expected, next models.PostStatus, change StatusChange) (bool, error)
	UpdateMetadata(ctx context.Context, id uint, metadata string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByToken(ctx context.Context, token string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("approval_token = ?", token).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UsedThemeIDs(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("created_at >= ?", since).
		Distinct().
		Pluck("theme_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) CompareAndSetStatus(ctx context.Context, id uint, expected, next models.PostStatus, change StatusChange) (bool, error) {
	updates := map[string]interface{}{
		"status": next,
	}
	if change.ApprovedAt != nil {
		updates["approved_at"] = change.ApprovedAt
	}
	if change.PublishedAt != nil {
		updates["published_at"] = change.PublishedAt
	}
	if change.InstagramPostID != "" {
		updates["instagram_post_id"] = change.InstagramPostID
	}
	if change.RejectionReason != "" {
		updates["rejection_reason"] = change.RejectionReason
	}

	tx := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *postRepository) UpdateMetadata(ctx context.Context, id uint, metadata string) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("metadata", metadata).Error
}
