package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrExtendFailed     = errors.New("token extend failed")
	ErrTokenDeleted     = errors.New("token delete failed")
)

const (
	UserTokenPrefix = "login:user:token"
	UserTokenExpire = 30 * time.Minute
)

// UserRepository 登录态：每个用户只保留一个有效 access token
type UserRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewUserRepository(client *redis.Client, ttl time.Duration) *UserRepository {
	if ttl <= 0 {
		ttl = UserTokenExpire
	}
	return &UserRepository{Client: client, TTL: ttl}
}

func (r *UserRepository) key(usrID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, usrID)
}

func (r *UserRepository) AddUserToken(ctx context.Context, usrID uint64, token string) error {
	if err := r.Client.Set(ctx, r.key(usrID), token, r.TTL).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *UserRepository) GetUserToken(ctx context.Context, usrID uint64) (string, error) {
	token, err := r.Client.Get(ctx, r.key(usrID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

func (r *UserRepository) ExtendUserToken(ctx context.Context, usrID uint64) error {
	if _, err := r.Client.Expire(ctx, r.key(usrID), r.TTL).Result(); err != nil {
		return ErrExtendFailed
	}
	return nil
}

func (r *UserRepository) DeleteUserToken(ctx context.Context, usrID uint64) error {
	if err := r.Client.Del(ctx, r.key(usrID)).Err(); err != nil {
		return ErrTokenDeleted
	}
	return nil
}
