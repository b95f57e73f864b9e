package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/messagefeed/feed/app/domain/feedapp"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed/users"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/mux"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/ardanlabs/messagefeed/feed/foundation/web"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
)

var build = "develop"

var messagesObserved = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "feed_messages_observed_total",
		Help: "Total number of feed messages observed on the ledger",
	},
)

func init() {
	prometheus.MustRegister(messagesObserved)
}

func main() {
	var log *logger.Logger

	traceIDFn := func(ctx context.Context) string {
		return web.GetTraceID(ctx).String()
	}

	log = logger.New(os.Stdout, logger.LevelInfo, "FEEDD", traceIDFn)

	// -------------------------------------------------------------------------

	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {

	// -------------------------------------------------------------------------
	// GOMAXPROCS

	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
		}
		Ledger struct {
			NodeURL     string `conf:"default:http://localhost:8899"`
			ProgramID   string `conf:"required"`
			KeyFilePath string `conf:"default:feed/zarf/feedd"`
		}
		NATS struct {
			Host    string `conf:"default:demo.nats.io"`
			Subject string `conf:"default:ardanlabs-feed"`
		}
		Feed struct {
			Greeting     string        `conf:"default:Welcome to the message feed!"`
			SyncInterval time.Duration `conf:"default:1s"`
			WalletURL    string        `conf:"default:http://localhost:8990"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "FEEDD",
		},
	}

	const prefix = "FEED"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// -------------------------------------------------------------------------
	// App Starting

	log.Info(ctx, "starting service", "version", cfg.Build)
	defer log.Info(ctx, "shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info(ctx, "startup", "config", out)

	log.BuildInfo(ctx)

	// -------------------------------------------------------------------------
	// Ledger access

	programID, err := ledger.ParsePointer(cfg.Ledger.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}

	rpc := ledger.NewRPCClient(cfg.Ledger.NodeURL)
	composer := feed.NewComposer(log, rpc, rpc)

	// -------------------------------------------------------------------------
	// Feed identity: load the genesis capabilities or create the feed.

	anchor, firstMessage, err := loadOrCreateFeed(ctx, log, composer, programID, cfg.Ledger.KeyFilePath, cfg.Feed.Greeting)
	if err != nil {
		return fmt.Errorf("feed identity: %w", err)
	}

	log.Info(ctx, "startup", "status", "feed ready", "firstMessage", firstMessage)

	// -------------------------------------------------------------------------
	// Registry, application layer, synchronizer

	registry := users.New(log, composer, anchor)

	// Clients build their ledger access from the url field, so it must
	// name the node, not this service.
	md := feed.Metadata{
		FirstMessage: firstMessage,
		ProgramID:    programID,
		LoginMethod:  feed.LoginLocal,
		URL:          cfg.Ledger.NodeURL,
		WalletURL:    cfg.Feed.WalletURL,
	}

	app := feedapp.New(log, md, registry)

	sync := feed.NewSynchronizer(log, rpc, registry.LookupName)

	// -------------------------------------------------------------------------
	// NATS

	nc, err := nats.Connect(cfg.NATS.Host)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	onNew := func(msg feed.Message) {
		messagesObserved.Inc()
		app.Publish(msg)

		data, err := json.Marshal(struct {
			Pointer string `json:"pointer"`
			From    string `json:"from"`
			Name    string `json:"name"`
			Text    string `json:"text"`
		}{
			Pointer: msg.Pointer.String(),
			From:    msg.From.String(),
			Name:    msg.Name,
			Text:    msg.Text,
		})
		if err != nil {
			return
		}

		nc.Publish(cfg.NATS.Subject, data)
	}

	// -------------------------------------------------------------------------
	// Sync loop

	syncCtx, cancelSync := context.WithCancel(ctx)
	defer cancelSync()

	go func() {
		view := feed.View{}

		if err := sync.Refresh(syncCtx, &view, onNew, md.FirstMessage); err != nil {
			log.Error(syncCtx, "sync", "status", "initial refresh failed", "err", err)
		}

		ticker := time.NewTicker(cfg.Feed.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-syncCtx.Done():
				return

			case <-ticker.C:
				if err := sync.Refresh(syncCtx, &view, onNew, ledger.Sentinel); err != nil {
					log.Error(syncCtx, "sync", "status", "refresh failed", "err", err)
				}
			}
		}
	}()

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing V1 API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	cfgMux := mux.Config{
		Log:  log,
		Feed: app,
	}

	webAPI := mux.WebAPI(cfgMux)

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      webAPI,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", api.Addr)

		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		cancelSync()

		ctx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// loadOrCreateFeed returns the genesis anchor capability and first message
// pointer, creating the feed on the ledger the first time the service runs.
func loadOrCreateFeed(ctx context.Context, log *logger.Logger, composer *feed.Composer, programID ledger.Pointer, keyFilePath string, greeting string) (ledger.Keypair, ledger.Pointer, error) {
	fileName := filepath.Join(keyFilePath, "feed.id")

	if _, err := os.Stat(fileName); err != nil {
		os.MkdirAll(keyFilePath, os.ModePerm)

		log.Info(ctx, "startup", "status", "creating new feed")

		msg, _, err := composer.PostFirstMessage(ctx, programID, greeting)
		if err != nil {
			return ledger.Keypair{}, ledger.Pointer{}, fmt.Errorf("post first message: %w", err)
		}

		doc := msg.Hex() + "\n"
		if err := os.WriteFile(fileName, []byte(doc), 0600); err != nil {
			return ledger.Keypair{}, ledger.Pointer{}, fmt.Errorf("feed id write: %w", err)
		}

		return msg, msg.Public(), nil
	}

	b, err := os.ReadFile(fileName)
	if err != nil {
		return ledger.Keypair{}, ledger.Pointer{}, fmt.Errorf("feed id read: %w", err)
	}

	msg, err := ledger.KeypairFromHex(strings.TrimSpace(string(b)))
	if err != nil {
		return ledger.Keypair{}, ledger.Pointer{}, fmt.Errorf("feed id parse: %w", err)
	}

	return msg, msg.Public(), nil
}
