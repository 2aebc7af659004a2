package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"Forum_Community/internal/media"
	"Forum_Community/internal/model"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/repository/redis"
	"Forum_Community/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxUploadBytes = 50 << 20
	maxResolveKeys = 100
	octetStream    = "application/octet-stream"
)

// ObjectStore 对象存储协作方
type ObjectStore interface {
	media.Presigner
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
}

type MediaService struct {
	store    *mysql.Store
	objects  ObjectStore
	resolver *media.Resolver
	caches   *redis.MediaCacheRepository
}

func NewMediaService(store *mysql.Store, objects ObjectStore, resolver *media.Resolver, caches *redis.MediaCacheRepository) *MediaService {
	return &MediaService{store: store, objects: objects, resolver: resolver, caches: caches}
}

// SessionKey 登录会话对应的媒体缓存 key
func SessionKey(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

type UploadResult struct {
	MediaKey        string `json:"media_key"`
	MediaURL        string `json:"media_url"`
	PresignedGetURL string `json:"presigned_get_url"`
	ContentType     string `json:"content_type"`
	ExpiresSeconds  int64  `json:"expires_seconds"`
}

type PresignResult struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// detectContentType 以文件内容为准；内容无法识别时才采用声明的类型
func detectContentType(declared string, data []byte) string {
	detected := baseType(mimetype.Detect(data).String())
	if detected != "" && detected != octetStream {
		return detected
	}
	return baseType(declared)
}

func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Upload 只接受图片和视频，key 形如 media/u{id}/{hex}{ext}
func (s *MediaService) Upload(ctx context.Context, actor uint64, filename, declaredType string, data []byte) (*UploadResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, pkg.InvalidInput("empty file")
	}
	if len(data) > MaxUploadBytes {
		return nil, pkg.InvalidInput("file exceeds %d bytes", MaxUploadBytes)
	}
	contentType := detectContentType(declaredType, data)
	if !media.IsImageOrVideo(contentType) {
		return nil, pkg.InvalidInput("only image/* and video/* are allowed, got %q", contentType)
	}

	key := storage.NewMediaKey(actor, filename)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, pkg.Internal("store media", err)
	}
	url, _, err := s.objects.Presign(ctx, key, s.resolver.TTL())
	if err != nil {
		return nil, pkg.Internal("presign media", err)
	}
	if err := s.store.Outbox.Append(ctx, model.EventMediaUpload, actor, map[string]any{
		"key":          key,
		"content_type": contentType,
		"bytes":        len(data),
	}); err != nil {
		log.Warn("append upload event failed", "key", key, "err", err)
	}
	return &UploadResult{
		MediaKey:        key,
		MediaURL:        s.objects.PublicURL(key),
		PresignedGetURL: url,
		ContentType:     contentType,
		ExpiresSeconds:  int64(s.resolver.TTL() / time.Second),
	}, nil
}

func (s *MediaService) Presign(ctx context.Context, actor uint64, key string) (*PresignResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkg.InvalidInput("key required")
	}
	entry, err := s.resolver.Resolve(ctx, true, key)
	if err != nil {
		return nil, storageError(err)
	}
	return &PresignResult{Key: key, URL: entry.URL, ContentType: entry.ContentType, ExpiresAt: entry.ExpiresAt}, nil
}

// Resolve 登录用户使用 redis 中的会话缓存；匿名请求使用调用方传入的缓存，可以为 nil。
// refresh 为 true 时忽略缓存重新解析。
func (s *MediaService) Resolve(ctx context.Context, actor uint64, mediaKeys []string, cache media.Cache, refresh bool) (map[string]media.Entry, error) {
	if len(mediaKeys) > maxResolveKeys {
		return nil, pkg.InvalidInput("at most %d keys per request", maxResolveKeys)
	}
	authenticated := actor != 0
	if authenticated && s.caches != nil {
		cache = s.caches.ForSession(SessionKey(actor))
	}
	var (
		out map[string]media.Entry
		err error
	)
	if refresh {
		out, err = s.resolver.Refresh(ctx, authenticated, mediaKeys, cache)
	} else {
		out, err = s.resolver.ResolveBatch(ctx, authenticated, mediaKeys, cache)
	}
	if err != nil {
		return nil, pkg.Internal("resolve media", err)
	}
	return out, nil
}

// Open 流式读取对象，调用方负责关闭
func (s *MediaService) Open(ctx context.Context, key string) (*storage.Object, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return nil, pkg.InvalidInput("key required")
	}
	obj, err := s.objects.Open(ctx, key)
	if err != nil {
		return nil, storageError(err)
	}
	if obj.ContentType == "" {
		obj.ContentType = media.ContentTypeFromURL(key)
	}
	return obj, nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return pkg.NotFound("media not found")
	}
	return pkg.Internal("object storage", err)
}
