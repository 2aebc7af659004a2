package mysql

import (
	"context"
	"time"

	"Forum_Community/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

// Create 每条评论独立插入，不修改其他评论
func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.DB.WithContext(ctx).Create(comment).Error
}

// FindOnPost 父评论必须属于同一帖子
func (r *CommentRepository) FindOnPost(ctx context.Context, postID, commentID string) (*model.Comment, error) {
	var comment model.Comment
	err := r.DB.WithContext(ctx).
		Where("id = ? AND post_id = ?", commentID, postID).
		First(&comment).Error
	return &comment, err
}

// ListByPost 返回扁平评论集合，按创建时间升序
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	list := make([]model.Comment, 0)
	err := r.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *CommentRepository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}
