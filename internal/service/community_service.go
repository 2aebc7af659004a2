package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
)

const (
	maxCommunityName = 80
	maxCommunityDesc = 500
)

type CommunityService struct {
	store *mysql.Store
}

func NewCommunityService(store *mysql.Store) *CommunityService {
	return &CommunityService{store: store}
}

func validateCommunityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxCommunityName {
		return "", pkg.InvalidInput("community name must be 1-%d characters", maxCommunityName)
	}
	return name, nil
}

func validateCommunityDesc(desc string) error {
	if utf8.RuneCountInString(desc) > maxCommunityDesc {
		return pkg.InvalidInput("description must be at most %d characters", maxCommunityDesc)
	}
	return nil
}

// communityError 名称唯一索引冲突单独给出提示
func communityError(err error) error {
	err = dbError(err, "community")
	if pkg.IsKind(err, pkg.KindConflict) {
		return pkg.Conflict("community name already exists")
	}
	return err
}

// CreateCommunity 创建者只记录在 created_by_user_id，不写成员关系
func (s *CommunityService) CreateCommunity(ctx context.Context, actor uint64, name, desc string) (*model.Community, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	name, err := validateCommunityName(name)
	if err != nil {
		return nil, err
	}
	if err := validateCommunityDesc(desc); err != nil {
		return nil, err
	}

	community := &model.Community{
		Name:            name,
		Description:     desc,
		CreatedByUserID: actor,
	}
	err = s.store.Tx(ctx, func(tx *mysql.Store) error {
		if err := tx.Community.Create(ctx, community); err != nil {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventCommunityCreate, actor, map[string]any{
			"community_id": community.ID,
			"name":         community.Name,
		})
	})
	if err != nil {
		return nil, communityError(err)
	}
	return community, nil
}

// UpdateCommunity 只有创建者可以修改；改名冲突由唯一索引在写入时拒绝
func (s *CommunityService) UpdateCommunity(ctx context.Context, actor, id uint64, name, desc *string) (*model.Community, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	fields := make(map[string]any, 2)
	if name != nil {
		n, err := validateCommunityName(*name)
		if err != nil {
			return nil, err
		}
		fields["name"] = n
	}
	if desc != nil {
		if err := validateCommunityDesc(*desc); err != nil {
			return nil, err
		}
		fields["description"] = *desc
	}

	var community *model.Community
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		c, err := tx.Community.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c.CreatedByUserID != actor {
			return pkg.Forbidden("only the creator can update this community")
		}
		if n, ok := fields["name"]; ok && n == c.Name {
			delete(fields, "name")
		}
		if len(fields) == 0 {
			community = c
			return nil
		}
		if err := tx.Community.Update(ctx, c, fields); err != nil {
			return err
		}
		if community, err = tx.Community.FindByID(ctx, id); err != nil {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventCommunityUpdate, actor, map[string]any{
			"community_id": c.ID,
			"fields":       keys(fields),
		})
	})
	if err != nil {
		return nil, communityError(err)
	}
	return community, nil
}

func (s *CommunityService) GetCommunity(ctx context.Context, id uint64) (*model.Community, error) {
	c, err := s.store.Community.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "community")
	}
	return c, nil
}

// ListCommunities 不传分页参数时返回全部，按 id 升序
func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	offset, limit := pageToOffset(page, size, 20, 100)
	list, err := s.store.Community.List(ctx, offset, limit)
	if err != nil {
		return nil, dbError(err, "community")
	}
	return list, nil
}

// JoinCommunity 幂等：已加入时返回 false 且不报错
func (s *CommunityService) JoinCommunity(ctx context.Context, actor, communityID uint64) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}
	var changed bool
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		ok, err := tx.Community.Exists(ctx, communityID)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.NotFound("community not found")
		}
		changed, err = tx.Members.Join(ctx, &model.CommunityMember{CommunityID: communityID, UserID: actor})
		if err != nil || !changed {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventCommunityJoin, actor, map[string]any{"community_id": communityID})
	})
	if err != nil {
		return false, dbError(err, "membership")
	}
	return changed, nil
}

// LeaveCommunity 幂等：未加入时返回 false 且不报错
func (s *CommunityService) LeaveCommunity(ctx context.Context, actor, communityID uint64) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}
	var changed bool
	err := s.store.Tx(ctx, func(tx *mysql.Store) error {
		ok, err := tx.Community.Exists(ctx, communityID)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.NotFound("community not found")
		}
		changed, err = tx.Members.Leave(ctx, communityID, actor)
		if err != nil || !changed {
			return err
		}
		return tx.Outbox.Append(ctx, model.EventCommunityLeave, actor, map[string]any{"community_id": communityID})
	})
	if err != nil {
		return false, dbError(err, "membership")
	}
	return changed, nil
}

// ListUserCommunities 创建的与加入的是两次独立查询，结果可以重叠
func (s *CommunityService) ListUserCommunities(ctx context.Context, actor uint64) (*model.UserCommunities, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	created, err := s.store.Community.ListCreatedBy(ctx, actor)
	if err != nil {
		return nil, dbError(err, "community")
	}
	joined, err := s.store.Community.ListJoinedBy(ctx, actor)
	if err != nil {
		return nil, dbError(err, "community")
	}
	return &model.UserCommunities{Created: created, Joined: joined}, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
