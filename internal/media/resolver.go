// Package media resolves opaque media keys into time-limited URLs.
package media

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPresignTTL  = time.Hour
	DefaultConcurrency = 8
)

// Presigner 对象存储协作方的解析契约
type Presigner interface {
	Presign(ctx context.Context, key string, ttl time.Duration) (url string, contentType string, err error)
	PublicURL(key string) string
}

type Resolver struct {
	storage     Presigner
	ttl         time.Duration
	concurrency int
	now         func() time.Time
}

func NewResolver(storage Presigner, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &Resolver{
		storage:     storage,
		ttl:         ttl,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
}

func (r *Resolver) TTL() time.Duration { return r.ttl }

// Resolve 已登录走预签名（带 content-type），匿名退化为公开直链且 content-type 为空
func (r *Resolver) Resolve(ctx context.Context, authenticated bool, key string) (Entry, error) {
	if !authenticated {
		return Entry{URL: r.storage.PublicURL(key)}, nil
	}
	url, contentType, err := r.storage.Presign(ctx, key, r.ttl)
	if err != nil {
		return Entry{Failed: true}, err
	}
	return Entry{URL: url, ContentType: contentType, ExpiresAt: r.now().Add(r.ttl)}, nil
}

// ResolveBatch 只解析缓存中缺失的 key，结果合并回缓存。
// 单个 key 失败只得到占位结果，不影响其他 key，也不会写入缓存。
func (r *Resolver) ResolveBatch(ctx context.Context, authenticated bool, keys []string, cache Cache) (map[string]Entry, error) {
	return r.resolve(ctx, authenticated, keys, cache, false)
}

// Refresh 忽略缓存重新解析，用于链接失效后的主动刷新
func (r *Resolver) Refresh(ctx context.Context, authenticated bool, keys []string, cache Cache) (map[string]Entry, error) {
	return r.resolve(ctx, authenticated, keys, cache, true)
}

func (r *Resolver) resolve(ctx context.Context, authenticated bool, keys []string, cache Cache, force bool) (map[string]Entry, error) {
	keys = dedupe(keys)
	out := make(map[string]Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	if !force && cache != nil {
		cached, err := cache.GetMany(ctx, keys)
		if err != nil {
			// 缓存只是优化，读失败按全部未命中处理
			log.Warn("media cache read failed", "err", err)
		}
		for k, e := range cached {
			out[k] = e
		}
	}

	missing := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	results := make([]Entry, len(missing))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, key := range missing {
		i, key := i, key
		g.Go(func() error {
			entry, err := r.Resolve(ctx, authenticated, key)
			if err != nil {
				log.Warn("media resolve failed", "key", key, "err", err)
				entry = Entry{Failed: true}
			}
			results[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	fresh := make(map[string]Entry, len(missing))
	for i, key := range missing {
		out[key] = results[i]
		if !results[i].Failed {
			fresh[key] = results[i]
		}
	}
	if cache != nil && len(fresh) > 0 {
		if err := cache.PutMany(ctx, fresh); err != nil {
			log.Warn("media cache write failed", "err", err)
		}
	}
	return out, ctx.Err()
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
