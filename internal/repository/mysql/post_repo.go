package mysql

import (
	"context"
	"time"

	"Forum_Community/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).First(&post, "id = ?", id).Error
	return &post, err
}

func (r *PostRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListByCommunity 基础分页查询，limit<=0 返回全部；新帖在前
func (r *PostRepository) ListByCommunity(ctx context.Context, communityID uint64, offset, limit int) ([]model.Post, error) {
	list := make([]model.Post, 0)
	q := r.DB.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// ListByCommunityCursor 基于时间游标的查询：索引 (community_id, created_at)
// lastCreatedAt 为零值表示第一页；否则用 (created_at, id) 作为严格游标
func (r *PostRepository) ListByCommunityCursor(ctx context.Context, communityID uint64, lastID string, lastCreatedAt time.Time, limit int) ([]model.Post, error) {
	list := make([]model.Post, 0)
	q := r.DB.WithContext(ctx).Where("community_id = ?", communityID)
	if !lastCreatedAt.IsZero() {
		// 先比时间，再在同一时间点用 id 打破并列
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", lastCreatedAt, lastCreatedAt, lastID)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

type commentCount struct {
	PostID string
	Count  int64
}

// CountComments 批量统计帖子的实时评论数
func (r *PostRepository) CountComments(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	var rows []commentCount
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// IncrCommentCount 评论写入同事务内调用
func (r *PostRepository) IncrCommentCount(ctx context.Context, postID string, delta int64) error {
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", postID).
		UpdateColumn("num_comments", gorm.Expr("num_comments + ?", delta)).Error
}

// CreatedSince 返回时间点之后的发帖时间，用于离线按天统计
func (r *PostRepository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}
