package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("PRESIGN_TTL_SECONDS", "")
	t.Setenv("SEED_DEMO", "")

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.PresignTTL != time.Hour {
		t.Fatalf("presign ttl = %v", cfg.PresignTTL)
	}
	if cfg.SeedDemo {
		t.Fatal("seed should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ACCESS_TTL_SECONDS", "60")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("MINIO_USE_SSL", "1")

	cfg := Load()
	if cfg.Addr != ":9999" || cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("access ttl = %v", cfg.AccessTTL)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("invalid int should fall back, got %d", cfg.RedisDB)
	}
	if !cfg.SeedDemo || !cfg.MinioUseSSL {
		t.Fatalf("bools not parsed: %+v", cfg)
	}
}
