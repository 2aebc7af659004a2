package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/thread"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxCommentBody = 10000

type CommentService struct {
	store *mysql.Store
	now   func() time.Time
}

func NewCommentService(store *mysql.Store) *CommentService {
	return &CommentService{store: store, now: utcNow}
}

// CreateComment 插入一条评论并在同一事务内给帖子计数 +1；不修改任何已有评论
func (s *CommentService) CreateComment(ctx context.Context, actor uint64, postID, body string, parentID *string) (*model.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, pkg.InvalidInput("comment body required")
	}
	if utf8.RuneCountInString(body) > maxCommentBody {
		return nil, pkg.InvalidInput("comment body must be at most %d characters", maxCommentBody)
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	comment := &model.Comment{
		ID:              uuid.NewString(),
		PostID:          postID,
		ParentCommentID: parentID,
		AuthorID:        actor,
		Body:            body,
		CreatedAt:       s.now(),
	}
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		ok, err := tx.Posts.Exists(ctx, postID)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.NotFound("post not found")
		}
		if parentID != nil {
			// 父评论必须在同一帖子下
			if _, err := tx.Comments.FindOnPost(ctx, postID, *parentID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkg.NotFound("parent comment not found on this post")
				}
				return err
			}
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		if err := tx.Posts.IncrCommentCount(ctx, postID, 1); err != nil {
			return err
		}
		payload := map[string]any{"comment_id": comment.ID, "post_id": postID}
		if parentID != nil {
			payload["parent_comment_id"] = *parentID
		}
		return tx.Outbox.Append(ctx, model.EventCommentCreate, actor, payload)
	})
	if err != nil {
		return nil, dbError(err, "comment")
	}
	return comment, nil
}

// ListFlat 读取帖子的扁平评论集合
func (s *CommentService) ListFlat(ctx context.Context, postID string) ([]model.Comment, error) {
	ok, err := s.store.Posts.Exists(ctx, postID)
	if err != nil {
		return nil, dbError(err, "post")
	}
	if !ok {
		return nil, pkg.NotFound("post not found")
	}
	list, err := s.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, dbError(err, "comment")
	}
	return list, nil
}

// ListTree 每次读取时由扁平记录重建回复树
func (s *CommentService) ListTree(ctx context.Context, postID string) ([]*thread.Node, error) {
	list, err := s.ListFlat(ctx, postID)
	if err != nil {
		return nil, err
	}
	return thread.Build(list), nil
}

// ListThreaded 前序展开，带深度，调用方可以据此还原结构
func (s *CommentService) ListThreaded(ctx context.Context, postID string) ([]thread.Entry, error) {
	roots, err := s.ListTree(ctx, postID)
	if err != nil {
		return nil, err
	}
	return thread.Flatten(roots), nil
}
