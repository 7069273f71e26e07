package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"snapquiz-service/internal/app"
	"snapquiz-service/internal/storage"
)

// RouterOptions carries the injected collaborators for the HTTP surface.
type RouterOptions struct {
	Service      *app.PlayerService
	Bundles      *app.BundleService
	Blobs        storage.BlobStore
	CORSOrigins  []string
	ProxyTimeout time.Duration
	ProxyMaxBody int64
}

// NewRouter assembles the full HTTP surface: the play websocket, bundle
// upload/fetch, asset serving, the pass-through proxy, and the leaderboard.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	ws := NewWSHandler(opts.Service)
	r.Get("/ws", ws.ServeWS)

	bundles := NewBundleHandler(opts.Bundles)
	r.Post("/bundles", bundles.Upload)
	r.Post("/bundles/fetch", bundles.Fetch)

	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, opts.Blobs)
	})

	proxy := NewProxyHandler(opts.ProxyTimeout, opts.ProxyMaxBody)
	r.Get("/proxy", proxy.ServeHTTP)

	board := NewLeaderboardHandler(opts.Service)
	r.Get("/leaderboard", board.Top)
	r.Post("/leaderboard", board.Submit)

	return r
}
