// Package app provides client app support.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

// Storage defines the persistence behavior for the local feed view.
type Storage interface {
	Messages() ([]feed.Message, error)
	InsertMessage(msg feed.Message) error
}

// UI defines the behavior needed from any client user interface.
type UI interface {
	Run() error
	WriteText(id string, msg string)
}

// =============================================================================

// App represents the client engine: it keeps the local view in sync with
// the chain and composes post transactions from user input.
type App struct {
	log      *logger.Logger
	db       Storage
	ui       UI
	composer *feed.Composer
	sync     *feed.Synchronizer
	md       feed.Metadata
	usr      ledger.Keypair

	muView sync.Mutex
	view   feed.View
}

// New constructs the client engine.
func New(log *logger.Logger, db Storage, ui UI, composer *feed.Composer, sync *feed.Synchronizer, md feed.Metadata, usr ledger.Keypair) *App {
	return &App{
		log:      log,
		db:       db,
		ui:       ui,
		composer: composer,
		sync:     sync,
		md:       md,
		usr:      usr,
	}
}

// Run loads the persisted view, starts the background refresh loop, and
// hands control to the UI.
func (app *App) Run(ctx context.Context, refreshInterval time.Duration) error {
	msgs, err := app.db.Messages()
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	app.view.Messages = msgs
	for _, msg := range msgs {
		app.ui.WriteText(msg.From.String(), formatMessage(msg.Name, msg.Text))
	}

	go func() {
		app.refresh(ctx)

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				app.refresh(ctx)
			}
		}
	}()

	return app.ui.Run()
}

// SendMessageHandler composes and submits a post transaction for the
// specified input. A leading "/ban <pointer>" bundles a ban request
// against that user account with the post.
func (app *App) SendMessageHandler(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("message cannot be empty")
	}

	text, ban, err := app.preprocessSendMessage(text)
	if err != nil {
		return fmt.Errorf("preprocess message: %w", err)
	}

	app.muView.Lock()
	last, exists := app.view.Last()
	app.muView.Unlock()

	if !exists {
		return errs.Newf(errs.FailedPrecondition, "feed not synchronized yet")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// The view is never updated from a successful submission. The next
	// refresh observes the new account on the chain itself.
	if _, err := app.composer.PostMessage(ctx, app.md.ProgramID, app.usr, last.Pointer, text, ban); err != nil {
		return fmt.Errorf("post message: %w", err)
	}

	return nil
}

// =============================================================================

func (app *App) refresh(ctx context.Context) {
	onNew := func(msg feed.Message) {
		if err := app.db.InsertMessage(msg); err != nil {
			app.ui.WriteText("system", fmt.Sprintf("store message: %s", err))
		}

		app.ui.WriteText(msg.From.String(), formatMessage(msg.Name, msg.Text))
	}

	app.muView.Lock()
	defer app.muView.Unlock()

	startFrom := ledger.Sentinel
	if len(app.view.Messages) == 0 {
		startFrom = app.md.FirstMessage
	}

	if err := app.sync.Refresh(ctx, &app.view, onNew, startFrom); err != nil {
		app.ui.WriteText("system", fmt.Sprintf("refresh: %s", err))
	}
}

func (app *App) preprocessSendMessage(text string) (string, ledger.Pointer, error) {
	if text[0] != '/' {
		return text, ledger.Sentinel, nil
	}

	parts := strings.SplitN(strings.TrimSpace(text[1:]), " ", 3)
	if len(parts) < 2 {
		return "", ledger.Sentinel, fmt.Errorf("invalid command format")
	}

	switch parts[0] {
	case "ban":
		target, err := ledger.ParsePointer(parts[1])
		if err != nil {
			return "", ledger.Sentinel, fmt.Errorf("ban target: %w", err)
		}

		text = fmt.Sprintf("banned %s", target.Short())
		if len(parts) == 3 {
			text = parts[2]
		}

		return text, target, nil
	}

	return "", ledger.Sentinel, fmt.Errorf("unknown command")
}

func formatMessage(name string, msg string) string {
	return fmt.Sprintf("%s: %s", name, msg)
}
