package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Forum_Community/internal/config"
	"Forum_Community/internal/media"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/repository/redis"
	"Forum_Community/internal/router"
	"Forum_Community/internal/service"
	"Forum_Community/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	pkg.InitLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mysql.InitDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", "driver", cfg.DBDriver, "err", err)
	}
	// 自动建表
	if err := mysql.AutoMigrate(db); err != nil {
		log.Fatal("migrations failed", "err", err)
	}
	store := mysql.NewStore(db)

	// 连接redis
	rdb, err := redis.Init(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis connection failed", "addr", cfg.RedisAddr, "err", err)
	}
	defer rdb.Close()

	objects, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		Bucket:        cfg.MinioBucket,
		UseSSL:        cfg.MinioUseSSL,
		PublicBaseURL: cfg.MediaPublicURL,
	})
	if err != nil {
		log.Fatal("object storage init failed", "err", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Warn("ensure bucket failed, uploads may fail", "bucket", cfg.MinioBucket, "err", err)
	}

	issuer := pkg.NewTokenIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := redis.NewUserRepository(rdb, cfg.AccessTTL)
	caches := redis.NewMediaCacheRepository(rdb, cfg.PresignTTL)
	resolver := media.NewResolver(objects, cfg.PresignTTL)

	deps := router.Deps{
		Store:     store,
		Issuer:    issuer,
		Sessions:  sessions,
		Users:     service.NewUserService(store, issuer, sessions, caches),
		Community: service.NewCommunityService(store),
		Posts:     service.NewPostService(store),
		Comments:  service.NewCommentService(store),
		Media:     service.NewMediaService(store, objects, resolver, caches),
	}

	if cfg.SeedDemo {
		if err := service.NewSeedService(store).SeedDemo(ctx); err != nil {
			log.Warn("seed demo data failed", "err", err)
		}
	}

	// 事件投递：配置了 broker 走 kafka，否则只写日志
	sender := service.Sender(service.LogSender)
	if brokers := pkg.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: brokers, Topic: cfg.KafkaTopic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
		log.Info("publishing events to kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.InitRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.NewOutboxRelayer(store, sender).Run(gctx)
		return nil
	})
	g.Go(func() error {
		service.NewCommentCountReconciler(store).ReconcilerRun(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("forum api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
