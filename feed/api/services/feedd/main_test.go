package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	count int
}

func (f *fakeSubmitter) SubmitAndConfirm(ctx context.Context, tx ledger.Transaction) error {
	f.count++
	return nil
}

type fakeFunder struct{}

func (f *fakeFunder) FundNewAccount(ctx context.Context, minimumLamports uint64) (ledger.Keypair, error) {
	return ledger.NewKeypair()
}

func TestLoadOrCreateFeed(t *testing.T) {
	dir := t.TempDir()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	submit := &fakeSubmitter{}
	composer := feed.NewComposer(log, submit, &fakeFunder{})

	var program ledger.Pointer
	program[0] = 9

	anchor, first, err := loadOrCreateFeed(context.Background(), log, composer, program, dir, "welcome")
	require.NoError(t, err)
	assert.Equal(t, anchor.Public(), first)
	assert.Equal(t, 1, submit.count)

	// The id file holds exactly the anchor capability, nothing else.
	b, err := os.ReadFile(filepath.Join(dir, "feed.id"))
	require.NoError(t, err)
	back, err := ledger.KeypairFromHex(strings.TrimSpace(string(b)))
	require.NoError(t, err)
	assert.Equal(t, anchor.Public(), back.Public())

	// A restart reloads the same identity without touching the ledger.
	again, firstAgain, err := loadOrCreateFeed(context.Background(), log, composer, program, dir, "welcome")
	require.NoError(t, err)
	assert.Equal(t, anchor.Public(), again.Public())
	assert.Equal(t, first, firstAgain)
	assert.Equal(t, 1, submit.count)
}
