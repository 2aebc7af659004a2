package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	maxPostTitle  = 300
	maxMediaKeys  = 20
	defaultPageSz = 20
	maxPageSz     = 50
)

type PostService struct {
	store *mysql.Store
	now   func() time.Time
}

func NewPostService(store *mysql.Store) *PostService {
	return &PostService{store: store, now: utcNow}
}

// CreatePost 不要求发帖人是社区成员；mediaKeys 原样按顺序保存
func (s *PostService) CreatePost(ctx context.Context, actor, communityID uint64, title, body string, mediaKeys []string) (*model.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkg.InvalidInput("title required")
	}
	if utf8.RuneCountInString(title) > maxPostTitle {
		return nil, pkg.InvalidInput("title must be at most %d characters", maxPostTitle)
	}
	if len(mediaKeys) > maxMediaKeys {
		return nil, pkg.InvalidInput("at most %d media keys", maxMediaKeys)
	}
	media := make([]string, 0, len(mediaKeys))
	for _, k := range mediaKeys {
		if strings.TrimSpace(k) == "" {
			return nil, pkg.InvalidInput("media key must not be empty")
		}
		media = append(media, k)
	}

	post := &model.Post{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		AuthorID:    actor,
		Title:       title,
		Body:        body,
		MediaKeys:   datatypes.JSONSlice[string](media),
		CreatedAt:   s.now(),
	}
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		ok, err := tx.Community.Exists(ctx, communityID)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.NotFound("community not found")
		}
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventPostCreate, actor, map[string]any{
			"post_id":      post.ID,
			"community_id": communityID,
			"media_count":  len(media),
		})
	})
	if err != nil {
		return nil, dbError(err, "post")
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.store.Posts.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "post")
	}
	list := []model.Post{*post}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListByCommunity 新帖在前；不传 page/size 时返回全部
func (s *PostService) ListByCommunity(ctx context.Context, communityID uint64, page, size int) ([]model.Post, error) {
	if err := s.ensureCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	offset, limit := pageToOffset(page, size, defaultPageSz, maxPageSz)
	list, err := s.store.Posts.ListByCommunity(ctx, communityID, offset, limit)
	if err != nil {
		return nil, dbError(err, "post")
	}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Cursor 游标分页的位置，零值表示第一页
type Cursor struct {
	LastID        string    `json:"last_id"`
	LastCreatedAt time.Time `json:"last_created_at"`
}

// ListByCommunityCursor 游标分页；返回下一页游标，没有更多数据时为 nil
func (s *PostService) ListByCommunityCursor(ctx context.Context, communityID uint64, cur Cursor, size int) ([]model.Post, *Cursor, error) {
	if err := s.ensureCommunity(ctx, communityID); err != nil {
		return nil, nil, err
	}
	if size <= 0 || size > maxPageSz {
		size = defaultPageSz
	}
	list, err := s.store.Posts.ListByCommunityCursor(ctx, communityID, cur.LastID, cur.LastCreatedAt, size)
	if err != nil {
		return nil, nil, dbError(err, "post")
	}
	if err := s.decorate(ctx, list); err != nil {
		return nil, nil, err
	}
	var next *Cursor
	if len(list) == size {
		last := list[len(list)-1]
		next = &Cursor{LastID: last.ID, LastCreatedAt: last.CreatedAt}
	}
	return list, next, nil
}

func (s *PostService) ensureCommunity(ctx context.Context, communityID uint64) error {
	ok, err := s.store.Community.Exists(ctx, communityID)
	if err != nil {
		return dbError(err, "community")
	}
	if !ok {
		return pkg.NotFound("community not found")
	}
	return nil
}

// decorate 回填实时评论数与作者信息，避免冗余计数滞后
func (s *PostService) decorate(ctx context.Context, list []model.Post) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	authorSet := make(map[uint64]struct{}, len(list))
	authors := make([]uint64, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
		if _, ok := authorSet[p.AuthorID]; !ok {
			authorSet[p.AuthorID] = struct{}{}
			authors = append(authors, p.AuthorID)
		}
	}

	counts, err := s.store.Posts.CountComments(ctx, ids)
	if err != nil {
		return dbError(err, "comment")
	}
	users, err := s.store.Users.FindByIDs(ctx, authors)
	if err != nil {
		return dbError(err, "user")
	}
	byID := make(map[uint64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for i := range list {
		list[i].NumComments = counts[list[i].ID]
		if list[i].MediaKeys == nil {
			list[i].MediaKeys = datatypes.JSONSlice[string]{}
		}
		if u, ok := byID[list[i].AuthorID]; ok {
			list[i].AuthorUsername = u.Username
			list[i].AuthorDisplayName = u.DisplayName
		}
	}
	return nil
}
