package feed_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFeedMetadataConvergence(t *testing.T) {
	first := ptr(1)
	program := ptr(2)

	responses := []func(w http.ResponseWriter){
		func(w http.ResponseWriter) {
			fmt.Fprint(w, `{"loading": true}`)
		},
		func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		func(w http.ResponseWriter) {
			fmt.Fprint(w, `{"loading": true}`)
		},
		func(w http.ResponseWriter) {
			fmt.Fprintf(w, `{"loading": false, "firstMessage": %q, "programId": %q, "loginMethod": "local", "url": "http://node", "walletUrl": "http://wallet"}`, first, program)
		},
	}

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses[attempts](w)
		attempts++
	}))
	defer srv.Close()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	md, err := feed.ResolveFeedMetadata(context.Background(), log, srv.URL)
	require.NoError(t, err)

	// The final metadata arrives after exactly 4 attempts; the transport
	// error in between never surfaced.
	assert.Equal(t, 4, attempts)
	assert.Equal(t, first, md.FirstMessage)
	assert.Equal(t, program, md.ProgramID)
	assert.Equal(t, feed.LoginLocal, md.LoginMethod)
	assert.Equal(t, "http://node", md.URL)
	assert.Equal(t, "http://wallet", md.WalletURL)
}

func TestResolveFeedMetadataUnsupportedLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"loading": false, "firstMessage": %q, "programId": %q, "loginMethod": "carrier-pigeon"}`, ptr(1), ptr(2))
	}))
	defer srv.Close()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	_, err := feed.ResolveFeedMetadata(context.Background(), log, srv.URL)
	assert.True(t, errs.HasCode(err, errs.UnsupportedLoginMethod))
}

func TestResolveFeedMetadataCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"loading": true}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	_, err := feed.ResolveFeedMetadata(ctx, log, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
