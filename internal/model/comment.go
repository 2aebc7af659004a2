package model

import "time"

// Comment 扁平存储，树结构在读取时重建
type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"comment_id"`
	PostID          string    `gorm:"size:36;not null;index:idx_post_time,priority:1" json:"post_id"`
	ParentCommentID *string   `gorm:"size:36;index" json:"parent_comment_id"`
	AuthorID        uint64    `gorm:"not null;index" json:"author_user_id"`
	Body            string    `gorm:"type:text;not null" json:"body"`
	CreatedAt       time.Time `gorm:"index:idx_post_time,priority:2" json:"created_at"`
}
