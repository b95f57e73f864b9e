package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/messagefeed/feed/api/frontends/client/app"
	"github.com/ardanlabs/messagefeed/feed/api/frontends/client/storage/sql"
	"github.com/ardanlabs/messagefeed/feed/api/frontends/client/ui/tui"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := struct {
		conf.Version
		ConfigURL       string        `conf:"default:http://localhost:3000/v1/config"`
		LoginURL        string        `conf:"default:http://localhost:3000/v1/login"`
		Username        string        `conf:"default:Anonymous"`
		FilePath        string        `conf:"default:feed/zarf/client"`
		RefreshInterval time.Duration `conf:"default:1s"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "CLIENT",
		},
	}

	const prefix = "FEED_CLIENT"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// -------------------------------------------------------------------------
	// The TUI owns the terminal, so logs go to a file.

	os.MkdirAll(filepath.Join(cfg.FilePath, "logs"), os.ModePerm)

	logFile, err := os.OpenFile(filepath.Join(cfg.FilePath, "logs", "client.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	log := logger.New(logFile, logger.LevelInfo, "CLIENT", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// -------------------------------------------------------------------------
	// Bootstrap

	md, err := feed.ResolveFeedMetadata(ctx, log, cfg.ConfigURL)
	if err != nil {
		return fmt.Errorf("resolve feed metadata: %w", err)
	}

	if md.LoginMethod != feed.LoginLocal {
		return errs.Newf(errs.UnsupportedLoginMethod, "login method %q", md.LoginMethod)
	}

	usr, err := login(ctx, cfg.LoginURL, cfg.Username)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// -------------------------------------------------------------------------
	// Engine wiring

	rpc := ledger.NewRPCClient(md.URL)

	db, err := sql.NewDB(cfg.FilePath, usr.Public(), cfg.Username)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	names := func(from ledger.Pointer) (string, bool) {
		if from == usr.Public() {
			return cfg.Username, true
		}
		return "", false
	}

	composer := feed.NewComposer(log, rpc, rpc)
	sync := feed.NewSynchronizer(log, rpc, names)

	ui := tui.New(usr.Public().String())

	a := app.New(log, db, ui, composer, sync, md, usr)
	ui.SetApp(a)

	return a.Run(ctx, cfg.RefreshInterval)
}

// login trades credentials for the signing capability registered under the
// username, creating the user on first sight.
func login(ctx context.Context, loginURL string, username string) (ledger.Keypair, error) {
	body, err := json.Marshal(struct {
		Username string `json:"username"`
	}{
		Username: username,
	})
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ledger.Keypair{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var doc struct {
		UserAccount string `json:"userAccount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return ledger.Keypair{}, fmt.Errorf("decode: %w", err)
	}

	return ledger.KeypairFromHex(doc.UserAccount)
}
