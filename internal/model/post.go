package model

import (
	"time"

	"gorm.io/datatypes"
)

type Post struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"post_id"`
	CommunityID uint64                      `gorm:"not null;index:idx_community_time,priority:1" json:"community_id"`
	AuthorID    uint64                      `gorm:"not null;index" json:"author_user_id"`
	Title       string                      `gorm:"size:300;not null" json:"title"`
	Body        string                      `gorm:"type:text" json:"body"`
	MediaKeys   datatypes.JSONSlice[string] `json:"media_keys"`
	NumComments int64                       `gorm:"not null;default:0" json:"num_comments"`
	CreatedAt   time.Time                   `gorm:"index:idx_community_time,priority:2" json:"created_at"`

	// 展示用，列表时批量回填
	AuthorUsername    string `gorm:"-" json:"author_username,omitempty"`
	AuthorDisplayName string `gorm:"-" json:"author_display_name,omitempty"`
}
