package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Forum_Community/internal/media"

	"github.com/redis/go-redis/v9"
)

const (
	MediaCacheKeyPrefix = "media:cache:session" // 每个会话一个 hash：field=媒体key
	MediaCacheTTL       = 30 * time.Minute
)

type MediaCacheRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewMediaCacheRepository(client *redis.Client, ttl time.Duration) *MediaCacheRepository {
	if ttl <= 0 {
		ttl = MediaCacheTTL
	}
	return &MediaCacheRepository{Client: client, TTL: ttl}
}

// ForSession 返回绑定到某个会话的缓存视图
func (r *MediaCacheRepository) ForSession(session string) media.Cache {
	return &sessionCache{repo: r, key: fmt.Sprintf("%s:%s", MediaCacheKeyPrefix, session)}
}

// Drop 会话结束时清理
func (r *MediaCacheRepository) Drop(ctx context.Context, session string) error {
	return r.Client.Del(ctx, fmt.Sprintf("%s:%s", MediaCacheKeyPrefix, session)).Err()
}

type sessionCache struct {
	repo *MediaCacheRepository
	key  string
}

func (c *sessionCache) GetMany(ctx context.Context, keys []string) (map[string]media.Entry, error) {
	out := make(map[string]media.Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := c.repo.Client.HMGet(ctx, c.key, keys...).Result()
	if err != nil {
		return out, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e media.Entry
		if json.Unmarshal([]byte(s), &e) != nil {
			continue
		}
		out[keys[i]] = e
	}
	return out, nil
}

// PutMany 合并写入，本次未涉及的字段保留；整个 hash 跟随会话过期
func (c *sessionCache) PutMany(ctx context.Context, entries map[string]media.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	fields := make(map[string]any, len(entries))
	for k, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fields[k] = string(b)
	}
	_, err := c.repo.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.key, fields)
		p.Expire(ctx, c.key, c.repo.TTL)
		return nil
	})
	return err
}
