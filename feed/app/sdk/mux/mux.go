// Package mux provides support to bind domain level routes to the
// application mux.
package mux

import (
	"net/http"

	"github.com/ardanlabs/messagefeed/feed/app/domain/feedapp"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/ardanlabs/messagefeed/feed/foundation/web"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log  *logger.Logger
	Feed *feedapp.App
}

var httpRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feed_http_requests_total",
		Help: "Total number of HTTP requests served",
	},
	[]string{"path"},
)

func init() {
	prometheus.MustRegister(httpRequests)
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/config", cfg.Feed.Config)
	mux.HandleFunc("POST /v1/login", cfg.Feed.Login)
	mux.HandleFunc("GET /v1/feed", cfg.Feed.Connect)
	mux.Handle("GET /metrics", promhttp.Handler())

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := web.SetTraceID(r.Context(), uuid.New())

		httpRequests.WithLabelValues(r.URL.Path).Inc()
		cfg.Log.Info(ctx, "request", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

		mux.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(h)
}
