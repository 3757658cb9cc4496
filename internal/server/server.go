package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/forkful/backend/config"
	"github.com/forkful/backend/internal/api"
	"github.com/forkful/backend/internal/database"
	"github.com/forkful/backend/internal/middleware"
	"github.com/forkful/backend/internal/service"
)

// Server wires the database, Redis and HTTP layer together.
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	redis  *redis.Client
	cfg    *config.Config
}

// New connects to the database, runs migrations and builds the router.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient == nil {
		log.Println("Redis not configured, rate limiting disabled")
	}

	images, err := imageService(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.Default()
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Locally stored images are served straight from disk.
	if cfg.S3Bucket == "" {
		router.Static(cfg.MediaBaseURL, cfg.MediaDir)
	}

	api.SetupAPI(router, db, redisClient, images, cfg.JWTSecret)

	return &Server{
		router: router,
		db:     db,
		redis:  redisClient,
		cfg:    cfg,
	}, nil
}

func imageService(cfg *config.Config) (*service.ImageService, error) {
	if cfg.S3Bucket != "" {
		s3cfg, err := config.NewS3Config(context.Background(), cfg.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("configure s3: %w", err)
		}
		if err := s3cfg.SetupBucketPolicy(context.Background()); err != nil {
			log.Printf("Could not apply bucket policy: %v", err)
		}
		return service.NewImageService(service.NewS3ImageStore(s3cfg)), nil
	}
	return service.NewImageService(service.NewLocalImageStore(cfg.MediaDir, cfg.MediaBaseURL)), nil
}

// Start runs the HTTP server, blocking until it stops.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.cfg.ServerHost + ":" + s.cfg.ServerPort,
		Handler: s.router,
	}

	log.Printf("Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}
