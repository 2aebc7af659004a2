package mysql

import (
	"context"

	"Forum_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityMemberRepository struct {
	DB *gorm.DB
}

// Join 幂等插入：若已存在 (community_id, user_id) 则不报错，返回是否真正新增
func (r *CommunityMemberRepository) Join(ctx context.Context, member *model.CommunityMember) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member)
	return res.RowsAffected > 0, res.Error
}

// Leave 幂等删除，返回是否真正删除
func (r *CommunityMemberRepository) Leave(ctx context.Context, communityID, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{})
	return res.RowsAffected > 0, res.Error
}
