package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"Forum_Community/internal/media"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestInitPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Init(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_ = client.Close()

	mr.Close()
	if _, err := Init(context.Background(), mr.Addr(), "", 0); err == nil {
		t.Fatal("expected Init to fail against a stopped server")
	}
}

func TestUserTokenLifecycle(t *testing.T) {
	mr, client := newClient(t)
	repo := NewUserRepository(client, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetUserToken(ctx, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if err := repo.AddUserToken(ctx, 1, "tok-a"); err != nil {
		t.Fatalf("AddUserToken() error = %v", err)
	}
	// 重新登录覆盖旧令牌
	if err := repo.AddUserToken(ctx, 1, "tok-b"); err != nil {
		t.Fatalf("AddUserToken() error = %v", err)
	}
	got, err := repo.GetUserToken(ctx, 1)
	if err != nil || got != "tok-b" {
		t.Fatalf("GetUserToken() = %q, %v", got, err)
	}

	mr.FastForward(50 * time.Second)
	if err := repo.ExtendUserToken(ctx, 1); err != nil {
		t.Fatalf("ExtendUserToken() error = %v", err)
	}
	mr.FastForward(50 * time.Second)
	if _, err := repo.GetUserToken(ctx, 1); err != nil {
		t.Fatalf("token should survive after extension: %v", err)
	}

	if err := repo.DeleteUserToken(ctx, 1); err != nil {
		t.Fatalf("DeleteUserToken() error = %v", err)
	}
	if _, err := repo.GetUserToken(ctx, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after delete, got %v", err)
	}
}

func TestUserTokenExpires(t *testing.T) {
	mr, client := newClient(t)
	repo := NewUserRepository(client, time.Minute)
	ctx := context.Background()

	if err := repo.AddUserToken(ctx, 2, "tok"); err != nil {
		t.Fatalf("AddUserToken() error = %v", err)
	}
	mr.FastForward(61 * time.Second)
	if _, err := repo.GetUserToken(ctx, 2); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMediaCacheMergesPerSession(t *testing.T) {
	mr, client := newClient(t)
	repo := NewMediaCacheRepository(client, time.Minute)
	ctx := context.Background()
	exp := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	a := repo.ForSession("1")
	if err := a.PutMany(ctx, map[string]media.Entry{
		"A": {URL: "u-a", ContentType: "image/png", ExpiresAt: exp},
		"B": {URL: "u-b", ContentType: "video/mp4", ExpiresAt: exp},
	}); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	if err := a.PutMany(ctx, map[string]media.Entry{"C": {URL: "u-c"}}); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}

	got, err := a.GetMany(ctx, []string{"A", "B", "C", "D"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(got) != 3 || got["A"].URL != "u-a" || got["B"].ContentType != "video/mp4" || !got["A"].ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected cache contents %+v", got)
	}

	other, err := repo.ForSession("2").GetMany(ctx, []string{"A"})
	if err != nil || len(other) != 0 {
		t.Fatalf("sessions must not share entries: %+v %v", other, err)
	}

	if ttl := mr.TTL(MediaCacheKeyPrefix + ":1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := repo.Drop(ctx, "1"); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	got, err = a.GetMany(ctx, []string{"A"})
	if err != nil || len(got) != 0 {
		t.Fatalf("dropped session should be empty: %+v %v", got, err)
	}
}
