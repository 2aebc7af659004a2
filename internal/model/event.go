package model

import "time"

const (
	EventUserRegister      = "user_register"
	EventUserLogin         = "user_login"
	EventUserProfileUpdate = "user_profile_update"
	EventCommunityCreate   = "community_create"
	EventCommunityUpdate   = "community_update"
	EventCommunityJoin     = "community_join"
	EventCommunityLeave    = "community_leave"
	EventPostCreate        = "post_create"
	EventCommentCreate     = "comment_create"
	EventMediaUpload       = "media_upload"
	EventSeed              = "seed"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// EventOutbox 领域事件表，与业务写入同事务落库，由 relayer 异步投递
type EventOutbox struct {
	ID          uint64  `gorm:"primaryKey"`
	EventType   string  `gorm:"size:32;not null;index"`
	ActorUserID *uint64 `gorm:"index"`
	Payload     string  `gorm:"type:text;not null"`
	Status      int8    `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry       int     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EventOutbox) TableName() string { return "event_outbox" }
