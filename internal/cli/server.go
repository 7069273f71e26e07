package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapquiz-service/internal/app"
	"snapquiz-service/internal/config"
	"snapquiz-service/internal/domain"
	"snapquiz-service/internal/infra/memory"
	pgloader "snapquiz-service/internal/infra/postgres"
	redisinfra "snapquiz-service/internal/infra/redis"
	"snapquiz-service/internal/storage"
	transport "snapquiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz player server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	staticLoader := memory.NewStaticFrameSetLoader(sampleFrameSets())
	var loader memory.FrameSetLoader = staticLoader
	var setStore app.FrameSetStore = staticLoader
	if pool != nil {
		pg := pgloader.NewFrameSetLoader(pool)
		loader = pg
		setStore = frameSetSaver{pg}
	}

	bundleTTL := config.Duration(cfg.Bundle.TTL, 10*time.Minute)
	var setRepo app.FrameSetRepository
	if redisClient != nil {
		setRepo = redisinfra.NewFrameSetRepository(redisClient, loader, bundleTTL)
	} else {
		setRepo = memory.NewFrameSetRepository(loader, bundleTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var board app.LeaderboardStore
	if cfg.Leaderboard.Enabled {
		switch {
		case pool != nil:
			board = pgloader.NewLeaderboard(pool)
		case redisClient != nil:
			board = redisinfra.NewLeaderboard(redisClient)
		default:
			board = memory.NewLeaderboard()
		}
	}

	blobs, err := storage.NewFSStore(cfg.Bundle.BlobDir)
	if err != nil {
		return err
	}

	advanceDelay := config.Duration(cfg.Game.AdvanceDelay, 200*time.Millisecond)
	service := app.NewPlayerService(sessions, setRepo, board, advanceDelay)
	bundles := app.NewBundleService(setStore, blobs, nil, cfg.Bundle.MaxBytes)

	handler := transport.NewRouter(transport.RouterOptions{
		Service:      service,
		Bundles:      bundles,
		Blobs:        blobs,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ProxyTimeout: config.Duration(cfg.Proxy.Timeout, 30*time.Second),
		ProxyMaxBody: cfg.Proxy.MaxBytes,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting snapquiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// frameSetSaver adapts the postgres loader's save method to app.FrameSetStore.
type frameSetSaver struct {
	pg *pgloader.FrameSetLoader
}

func (s frameSetSaver) SaveFrameSet(ctx context.Context, set domain.FrameSet) error {
	return s.pg.SaveFrameSet(ctx, set)
}

// sampleFrameSets provides a minimal demo bundle; uploads replace this in practice.
func sampleFrameSets() map[string]domain.FrameSet {
	return map[string]domain.FrameSet{
		"demo": {
			ID: "demo",
			Frames: []domain.Frame{
				{
					ID:    "f1",
					Image: "bundles/demo/start.png",
					Width: 800, Height: 600,
					Hotspots: []domain.Hotspot{
						{ID: "h1", Region: domain.Region{X: 40, Y: 40, W: 120, H: 32}},
					},
				},
				{
					ID:    "f2",
					Image: "bundles/demo/city.png",
					Width: 800, Height: 600,
					Inputs: []domain.Input{
						{ID: "i1", Region: domain.Region{X: 40, Y: 40, W: 160, H: 28}, Expected: "Paris"},
					},
				},
			},
		},
	}
}
