package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"Forum_Community/internal/media"
	"Forum_Community/internal/pkg"
)

// 最小的 PNG 文件头，足够被内容嗅探识别
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestUploadAndOpen(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")

	res, err := env.media.Upload(ctx, u, "Cat.PNG", "image/png", pngHeader)
	requireNoErr(t, err)
	if !strings.HasPrefix(res.MediaKey, "media/u") || !strings.HasSuffix(res.MediaKey, ".png") {
		t.Fatalf("unexpected key %q", res.MediaKey)
	}
	if res.ContentType != "image/png" || res.ExpiresSeconds != 3600 {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if res.MediaURL != "http://public.local/media/"+res.MediaKey || res.PresignedGetURL == "" {
		t.Fatalf("unexpected urls %+v", res)
	}

	obj, err := env.media.Open(ctx, "/"+res.MediaKey)
	requireNoErr(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	requireNoErr(t, err)
	if string(data) != string(pngHeader) || obj.ContentType != "image/png" {
		t.Fatal("stored object differs from upload")
	}

	_, err = env.media.Open(ctx, "media/missing.png")
	requireKind(t, err, pkg.KindNotFound)
}

func TestUploadRejectsNonMedia(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")

	// 声明为图片但内容是文本
	_, err := env.media.Upload(ctx, u, "fake.png", "image/png", []byte("just some text"))
	requireKind(t, err, pkg.KindInvalidInput)
	_, err = env.media.Upload(ctx, u, "empty.png", "image/png", nil)
	requireKind(t, err, pkg.KindInvalidInput)
	_, err = env.media.Upload(ctx, 0, "a.png", "image/png", pngHeader)
	requireKind(t, err, pkg.KindUnauthorized)
}

func TestPresign(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")
	env.objects.seed("media/u1/a.mp4", "video/mp4")

	res, err := env.media.Presign(ctx, u, "media/u1/a.mp4")
	requireNoErr(t, err)
	if res.ContentType != "video/mp4" || !strings.HasPrefix(res.URL, "https://signed.local/") {
		t.Fatalf("unexpected presign %+v", res)
	}
	_, err = env.media.Presign(ctx, u, "media/u1/none.mp4")
	requireKind(t, err, pkg.KindNotFound)
	_, err = env.media.Presign(ctx, 0, "media/u1/a.mp4")
	requireKind(t, err, pkg.KindUnauthorized)
}

func TestResolveUsesSessionCache(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.register(t, "u")
	for _, k := range []string{"A", "B", "C"} {
		env.objects.seed(k, "image/jpeg")
	}

	first, err := env.media.Resolve(ctx, u, []string{"A", "B"}, nil, false)
	requireNoErr(t, err)
	if len(first) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(first))
	}
	second, err := env.media.Resolve(ctx, u, []string{"B", "C"}, nil, false)
	requireNoErr(t, err)
	if second["C"].URL == "" || second["B"].URL != first["B"].URL {
		t.Fatalf("unexpected second result %+v", second)
	}
	if env.objects.presignCount("A") != 1 || env.objects.presignCount("B") != 1 || env.objects.presignCount("C") != 1 {
		t.Fatal("each key should be presigned exactly once")
	}

	cached, err := env.caches.ForSession(SessionKey(u)).GetMany(ctx, []string{"A", "B", "C"})
	requireNoErr(t, err)
	if len(cached) != 3 {
		t.Fatalf("session cache should hold A, B and C, got %v", cached)
	}

	// 强制刷新会重新签名
	_, err = env.media.Resolve(ctx, u, []string{"A"}, nil, true)
	requireNoErr(t, err)
	if env.objects.presignCount("A") != 2 {
		t.Fatal("refresh should bypass the cache")
	}
}

func TestResolveAnonymous(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	cache := media.NewMemoryCache()

	out, err := env.media.Resolve(ctx, 0, []string{"media/u1/a.png"}, cache, false)
	requireNoErr(t, err)
	entry := out["media/u1/a.png"]
	if entry.URL != "http://public.local/media/media/u1/a.png" || entry.ContentType != "" {
		t.Fatalf("unexpected anonymous entry %+v", entry)
	}
	if env.objects.presignCount("media/u1/a.png") != 0 {
		t.Fatal("anonymous resolution must not presign")
	}
	if cache.Len() != 1 {
		t.Fatal("caller cache should be filled")
	}

	keys := make([]string, 101)
	for i := range keys {
		keys[i] = strings.Repeat("k", i+1)
	}
	_, err = env.media.Resolve(ctx, 0, keys, nil, false)
	requireKind(t, err, pkg.KindInvalidInput)
}
