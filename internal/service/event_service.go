package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"

	"github.com/charmbracelet/log"
)

// CommentCountReconciler 帖子评论数对账
type CommentCountReconciler struct {
	repo      *mysql.CommentCountReconcilerRepo
	batchSize int
	interval  time.Duration
}

type Sender func(ctx context.Context, ob *model.EventOutbox) error

// OutboxRelayer outbox表相关服务
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(store *mysql.Store, sender Sender) *OutboxRelayer {
	if sender == nil {
		sender = LogSender
	}
	return &OutboxRelayer{
		repo:      store.Outbox,
		batchSize: 200,
		maxRetry:  5,
		interval:  time.Second,
		sender:    sender,
	}
}

func NewCommentCountReconciler(store *mysql.Store) *CommentCountReconciler {
	return &CommentCountReconciler{
		repo:      store.Reconciler,
		batchSize: 500,             // 设置一次对账的大小
		interval:  5 * time.Minute, // 对账的间隔时间
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批待发送事件，返回成功与失败条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) (sent, failed int) {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		log.Error("outbox query failed", "err", err)
		return 0, 0
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			log.Warn("outbox send failed", "id", ob.ID, "type", ob.EventType, "retry", ob.Retry, "err", err)
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			failed++
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
		sent++
	}
	return sent, failed
}

// LogSender 未配置 kafka 时的默认 sender
func LogSender(_ context.Context, ob *model.EventOutbox) error {
	var actor uint64
	if ob.ActorUserID != nil {
		actor = *ob.ActorUserID
	}
	log.Info("event", "id", ob.ID, "type", ob.EventType, "actor", actor, "payload", ob.Payload)
	return nil
}

type eventEnvelope struct {
	ID          uint64          `json:"id"`
	Type        string          `json:"type"`
	ActorUserID *uint64         `json:"actor_user_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// KafkaSender 以事件类型为 key 投递，同类事件保持有序
func KafkaSender(producer *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.EventOutbox) error {
		payload := json.RawMessage(ob.Payload)
		if !json.Valid(payload) {
			payload = json.RawMessage("{}")
		}
		value, err := json.Marshal(eventEnvelope{
			ID:          ob.ID,
			Type:        ob.EventType,
			ActorUserID: ob.ActorUserID,
			Payload:     payload,
			CreatedAt:   ob.CreatedAt,
		})
		if err != nil {
			return err
		}
		return producer.Send(ctx, ob.EventType, value, map[string]string{
			"event_id":   strconv.FormatUint(ob.ID, 10),
			"event_type": ob.EventType,
		})
	}
}

// ReconcilerRun 对账定时任务启动器
func (r *CommentCountReconciler) ReconcilerRun(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				log.Error("reconcile failed", "err", err)
			}
		}
	}
}

// ReconcileOnce 按 id 游标遍历全部帖子，修正与真实评论数不一致的计数
func (r *CommentCountReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	fixed := 0
	lastID := ""
	for {
		posts, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			return fixed, err
		}
		if len(posts) == 0 {
			return fixed, nil
		}
		for _, p := range posts {
			// 比对与写回在一条语句里完成，不会覆盖并发评论的 +1
			changed, err := r.repo.ReconcileComments(ctx, p.ID)
			if err != nil {
				log.Warn("reconcile post failed", "post", p.ID, "err", err)
				continue
			}
			if changed {
				log.Info("comment count reconciled", "post", p.ID, "from", p.NumComments)
				fixed++
			}
		}
		lastID = next
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
	}
}
