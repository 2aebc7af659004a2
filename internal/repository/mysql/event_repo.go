package mysql

import (
	"context"
	"encoding/json"

	"Forum_Community/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

type CommentCountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账消息结构体
type Pair struct {
	ID          string
	NumComments int64
}

// Append 写入事件；传入事务句柄时与业务写入同事务
func (r *OutboxRepository) Append(ctx context.Context, eventType string, actorID uint64, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ob := &model.EventOutbox{
		EventType: eventType,
		Payload:   string(body),
		Status:    model.OutboxPending,
	}
	if actorID != 0 {
		ob.ActorUserID = &actorID
	}
	return r.DB.WithContext(ctx).Create(ob).Error
}

// List outbox查询：待发送与可重试的失败记录
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.EventOutbox, error) {
	var list []model.EventOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}

// Scan 分批遍历全部事件，用于离线统计
func (r *OutboxRepository) Scan(ctx context.Context, batchSize int, fn func([]model.EventOutbox) error) error {
	var batch []model.EventOutbox
	return r.DB.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}

// ReconcileList 异步对账帖子批量查询，按 id 游标推进
func (r *CommentCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID string) ([]Pair, string, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.Post{}).
		Select("id", "num_comments").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// liveCommentCount 关联子查询，计数与写回在同一条语句内完成
const liveCommentCount = "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)"

// ReconcileComments 计数与真实评论数不一致时修正，返回是否发生了修正
func (r *CommentCountReconcilerRepo) ReconcileComments(ctx context.Context, postID string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("posts.id = ? AND posts.num_comments <> "+liveCommentCount, postID).
		UpdateColumn("num_comments", gorm.Expr(liveCommentCount))
	return res.RowsAffected > 0, res.Error
}
