package model

import "time"

type Community struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"uniqueIndex;size:80;not null" json:"name"`
	Description     string    `gorm:"size:500;not null;default:''" json:"description"`
	CreatedByUserID uint64    `gorm:"not null;index" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CommunityMember 纯关联表，(community_id, user_id) 唯一；与创建者关系相互独立
type CommunityMember struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID uint64 `gorm:"not null;index;uniqueIndex:uk_community_user"`
	UserID      uint64 `gorm:"not null;index;uniqueIndex:uk_community_user"`
	CreatedAt   time.Time
}

// UserCommunities 用户视角的社区：创建的与加入的可以重叠
type UserCommunities struct {
	Created []Community `json:"created"`
	Joined  []Community `json:"joined"`
}
