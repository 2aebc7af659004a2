package mysql

import (
	"context"

	"Forum_Community/internal/model"

	"gorm.io/gorm"
)

type CommunityRepository struct {
	DB *gorm.DB
}

// Create 唯一索引保证名称不重复；创建者不会自动成为成员
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).First(&community, id).Error
	return &community, err
}

func (r *CommunityRepository) FindByName(ctx context.Context, name string) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&community).Error
	return &community, err
}

func (r *CommunityRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Community{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update 改名冲突由唯一索引在写入时原子拒绝
func (r *CommunityRepository) Update(ctx context.Context, c *model.Community, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(c).Updates(fields).Error
}

// List limit<=0 时返回全部，按 id 升序保持稳定
func (r *CommunityRepository) List(ctx context.Context, offset, limit int) ([]model.Community, error) {
	list := make([]model.Community, 0)
	q := r.DB.WithContext(ctx).Order("id asc")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *CommunityRepository) ListCreatedBy(ctx context.Context, userID uint64) ([]model.Community, error) {
	list := make([]model.Community, 0)
	err := r.DB.WithContext(ctx).
		Where("created_by_user_id = ?", userID).
		Order("id asc").
		Find(&list).Error
	return list, err
}

func (r *CommunityRepository) ListJoinedBy(ctx context.Context, userID uint64) ([]model.Community, error) {
	list := make([]model.Community, 0)
	err := r.DB.WithContext(ctx).
		Joins("JOIN community_members m ON m.community_id = communities.id").
		Where("m.user_id = ?", userID).
		Order("communities.id asc").
		Find(&list).Error
	return list, err
}
