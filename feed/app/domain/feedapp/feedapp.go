// Package feedapp provides the application layer for the feed service:
// the bootstrap config endpoint, local login, and the live feed stream.
package feedapp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed/users"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/gorilla/websocket"
)

// pingWait is how often idle subscriber connections are pinged.
const pingWait = 10 * time.Second

// App provides the handlers for the feed service endpoints.
type App struct {
	log      *logger.Logger
	md       feed.Metadata
	registry *users.Registry
	ws       websocket.Upgrader

	muFeed   sync.RWMutex
	messages []wsMessage
	conns    map[*websocket.Conn]struct{}
}

// New constructs the application layer over ready feed metadata.
func New(log *logger.Logger, md feed.Metadata, registry *users.Registry) *App {
	a := App{
		log:      log,
		md:       md,
		registry: registry,
		conns:    make(map[*websocket.Conn]struct{}),
	}

	a.ping(pingWait)

	return &a
}

// Publish records a newly observed message and pushes it to every feed
// subscriber. It is the synchronizer's observer callback.
func (a *App) Publish(msg feed.Message) {
	doc := wsMessage{
		Pointer: msg.Pointer.String(),
		From:    msg.From.String(),
		Name:    msg.Name,
		Text:    msg.Text,
	}

	a.muFeed.Lock()
	defer a.muFeed.Unlock()

	a.messages = append(a.messages, doc)

	for conn := range a.conns {
		if err := conn.WriteJSON(doc); err != nil {
			conn.Close()
			delete(a.conns, conn)
		}
	}
}

// Config serves the bootstrap metadata document. The service only
// constructs this app once the feed exists, so loading is always false.
func (a *App) Config(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, configResponse{
		Loading:      false,
		FirstMessage: a.md.FirstMessage.String(),
		ProgramID:    a.md.ProgramID.String(),
		LoginMethod:  string(a.md.LoginMethod),
		URL:          a.md.URL,
		WalletURL:    a.md.WalletURL,
	})
}

// Login registers the user on first sight and returns their signing
// capability. Local login only; the password is glue for the front door
// and is not part of the protocol.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, "could not decode request body")
		return
	}

	if body.Username == "" {
		a.respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	usr, err := a.registry.Login(r.Context(), a.md.ProgramID, body.Username)
	if err != nil {
		a.log.Error(r.Context(), "feedapp-login", "username", body.Username, "err", err)
		a.respondError(w, http.StatusInternalServerError, "could not register user")
		return
	}

	a.respond(w, http.StatusOK, loginResponse{
		UserAccount: usr.Capability.Hex(),
	})
}

// Connect upgrades the request to a websocket, replays the feed observed
// so far, then streams every new message as it is discovered.
func (a *App) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := a.ws.Upgrade(w, r, nil)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "unable to upgrade to websocket")
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("HELLO")); err != nil {
		conn.Close()
		return
	}

	a.muFeed.Lock()
	defer a.muFeed.Unlock()

	for _, doc := range a.messages {
		if err := conn.WriteJSON(doc); err != nil {
			conn.Close()
			return
		}
	}

	a.conns[conn] = struct{}{}

	a.log.Info(r.Context(), "feedapp-connect", "status", "subscribed", "replayed", len(a.messages))
}

// =============================================================================

func (a *App) ping(maxWait time.Duration) {
	ticker := time.NewTicker(maxWait)

	go func() {
		for {
			<-ticker.C

			a.muFeed.Lock()
			for conn := range a.conns {
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					conn.Close()
					delete(a.conns, conn)
				}
			}
			a.muFeed.Unlock()
		}
	}()
}

func (a *App) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error(context.Background(), "feedapp-respond", "err", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, status int, msg string) {
	type response struct {
		Error string `json:"error"`
	}

	a.respond(w, status, response{Error: msg})
}
