package mysql

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合同一个连接（或事务）上的全部仓储
type Store struct {
	DB         *gorm.DB
	Users      *UserRepository
	Community  *CommunityRepository
	Members    *CommunityMemberRepository
	Posts      *PostRepository
	Comments   *CommentRepository
	Outbox     *OutboxRepository
	Reconciler *CommentCountReconcilerRepo
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:         db,
		Users:      &UserRepository{DB: db},
		Community:  &CommunityRepository{DB: db},
		Members:    &CommunityMemberRepository{DB: db},
		Posts:      &PostRepository{DB: db},
		Comments:   &CommentRepository{DB: db},
		Outbox:     &OutboxRepository{DB: db},
		Reconciler: &CommentCountReconcilerRepo{DB: db},
	}
}

// Tx 在事务中执行，fn 内只能使用传入的 Store
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
