package service

import (
	"context"
	"errors"
	"time"

	"Forum_Community/internal/model"
	"Forum_Community/internal/repository/mysql"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DemoUsername  = "demo"
	DemoPassword  = "demo1234"
	DemoCommunity = "demo"
)

type SeedService struct {
	store *mysql.Store
	now   func() time.Time
}

func NewSeedService(store *mysql.Store) *SeedService {
	return &SeedService{store: store, now: utcNow}
}

// SeedDemo 幂等：演示用户、社区、欢迎帖和一条评论，已存在的部分跳过
func (s *SeedService) SeedDemo(ctx context.Context) error {
	return s.store.Tx(ctx, func(tx *mysql.Store) error {
		user, err := tx.Users.FindByLogin(ctx, DemoUsername)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash, herr := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
			if herr != nil {
				return herr
			}
			user = &model.User{
				Username:    DemoUsername,
				Email:       "demo@example.com",
				DisplayName: "Demo User",
				Password:    string(hash),
			}
			if err = tx.Users.Create(ctx, user); err != nil {
				return err
			}
			if err = tx.Outbox.Append(ctx, model.EventSeed, user.ID, map[string]any{"user_id": user.ID}); err != nil {
				return err
			}
			log.Info("seeded demo user", "id", user.ID)
		} else if err != nil {
			return err
		}

		community, err := tx.Community.FindByName(ctx, DemoCommunity)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			community = &model.Community{
				Name:            DemoCommunity,
				Description:     "Welcome to the demo community.",
				CreatedByUserID: user.ID,
			}
			if err = tx.Community.Create(ctx, community); err != nil {
				return err
			}
			if err = tx.Outbox.Append(ctx, model.EventSeed, user.ID, map[string]any{"community_id": community.ID}); err != nil {
				return err
			}
			log.Info("seeded demo community", "id", community.ID)
		} else if err != nil {
			return err
		}

		posts, err := tx.Posts.ListByCommunity(ctx, community.ID, 0, 1)
		if err != nil {
			return err
		}
		if len(posts) > 0 {
			return nil
		}

		now := s.now()
		post := &model.Post{
			ID:          uuid.NewString(),
			CommunityID: community.ID,
			AuthorID:    user.ID,
			Title:       "Welcome to the demo feed",
			Body:        "This seeded post shows up for the demo flow. Feel free to add more!",
			MediaKeys:   datatypes.JSONSlice[string]{},
			NumComments: 1,
			CreatedAt:   now,
		}
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}
		comment := &model.Comment{
			ID:        uuid.NewString(),
			PostID:    post.ID,
			AuthorID:  user.ID,
			Body:      "Drop a comment to keep the conversation going.",
			CreatedAt: now,
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		log.Info("seeded demo post", "id", post.ID)
		return tx.Outbox.Append(ctx, model.EventSeed, user.ID, map[string]any{"post_id": post.ID, "comment_id": comment.ID})
	})
}
