package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"snapquiz-service/internal/app"
	"snapquiz-service/internal/domain"
	pgloader "snapquiz-service/internal/infra/postgres"
	pgmigrations "snapquiz-service/internal/infra/postgres/migrations"
	infraredis "snapquiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestPlayThroughEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBundle(t, ctx, pgURL, sampleFrameSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewFrameSetLoader(pool)
	board := pgloader.NewLeaderboard(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	setRepo := infraredis.NewFrameSetRepository(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewPlayerService(sessions, setRepo, board, 0)

	snap, err := service.StartSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.FrameCount != 2 {
		t.Fatalf("expected 2 frames, got %d", snap.FrameCount)
	}

	// Hit the hotspot; with no delay this advances to the input frame.
	fb, err := service.Click(ctx, snap.SessionID, domain.Point{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if fb.Kind != "hit" {
		t.Fatalf("expected hit, got %+v", fb)
	}
	if err := service.SetInput(ctx, snap.SessionID, "i1", " PARIS "); err != nil {
		t.Fatalf("set input: %v", err)
	}

	final, err := service.Finish(ctx, snap.SessionID, "alice@example.com")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if final.Score == nil || final.Score.Final != 2 {
		t.Fatalf("expected final score 2, got %+v", final.Score)
	}

	// The leaderboard submit is async; poll postgres for it.
	deadline := time.Now().Add(10 * time.Second)
	for {
		top, err := board.Top(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("top: %v", err)
		}
		if len(top) == 1 {
			if top[0].Email != "alice@example.com" || top[0].Score != 2 {
				t.Fatalf("unexpected entry %+v", top[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("leaderboard entry never landed")
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBundle(t *testing.T, ctx context.Context, dsn string, set domain.FrameSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO bundles (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert bundle: %v", err)
	}
}

func sampleFrameSet() domain.FrameSet {
	return domain.FrameSet{
		ID: "quiz-1",
		Frames: []domain.Frame{
			{
				ID:    "f1",
				Image: "bundles/quiz-1/one.png",
				Width: 400, Height: 300,
				Hotspots: []domain.Hotspot{
					{ID: "h1", Region: domain.Region{X: 10, Y: 10, W: 50, H: 20}},
				},
			},
			{
				ID:    "f2",
				Image: "bundles/quiz-1/two.png",
				Width: 400, Height: 300,
				Inputs: []domain.Input{
					{ID: "i1", Region: domain.Region{X: 10, Y: 10, W: 80, H: 20}, Expected: "Paris"},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
