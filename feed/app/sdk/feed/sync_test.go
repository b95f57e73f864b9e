package feed_test

import (
	"context"
	"io"
	"testing"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	accounts map[ledger.Pointer][]byte
	reads    int
}

func (f *fakeLedger) ReadAccount(ctx context.Context, p ledger.Pointer) (ledger.Account, error) {
	f.reads++

	data, exists := f.accounts[p]
	if !exists {
		return ledger.Account{}, errs.Newf(errs.AccountNotFound, "account %s", p)
	}

	return ledger.Account{Data: data, Owner: ptr(9)}, nil
}

// chain links the accounts for the specified pointers in order, the last
// one terminated by the sentinel.
func (f *fakeLedger) chain(from ledger.Pointer, ptrs []ledger.Pointer, texts []string) {
	for i, p := range ptrs {
		next := ledger.Sentinel
		if i < len(ptrs)-1 {
			next = ptrs[i+1]
		}

		f.accounts[p] = messageAccountBytes(next, from, ledger.Sentinel, texts[i])
	}
}

func newSynchronizer(f *fakeLedger, names feed.NameResolver) *feed.Synchronizer {
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	return feed.NewSynchronizer(log, f, names)
}

func TestRefreshOrderPreservation(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	f.chain(ptr(7), []ledger.Pointer{ptr(1), ptr(2), ptr(3)}, []string{"a", "b", "c"})

	sync := newSynchronizer(f, nil)

	var view feed.View
	var observed []string
	onNew := func(m feed.Message) { observed = append(observed, m.Text) }

	err := sync.Refresh(context.Background(), &view, onNew, ptr(1))
	require.NoError(t, err)

	require.Len(t, view.Messages, 3)
	assert.Equal(t, []string{"a", "b", "c"}, observed)
	assert.Equal(t, ptr(1), view.Messages[0].Pointer)
	assert.Equal(t, ptr(2), view.Messages[1].Pointer)
	assert.Equal(t, ptr(3), view.Messages[2].Pointer)
}

func TestRefreshResumability(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	f.chain(ptr(7), []ledger.Pointer{ptr(1), ptr(2)}, []string{"a", "b"})

	sync := newSynchronizer(f, nil)

	var view feed.View
	require.NoError(t, sync.Refresh(context.Background(), &view, nil, ptr(1)))
	require.Len(t, view.Messages, 2)

	// No new messages on chain: the second refresh leaves the view
	// unchanged.
	require.NoError(t, sync.Refresh(context.Background(), &view, nil, ledger.Sentinel))
	assert.Len(t, view.Messages, 2)

	// The chain grows; a resume picks up exactly the new tail.
	f.chain(ptr(7), []ledger.Pointer{ptr(2), ptr(3), ptr(4)}, []string{"b", "c", "d"})

	var count int
	onNew := func(feed.Message) { count++ }

	require.NoError(t, sync.Refresh(context.Background(), &view, onNew, ledger.Sentinel))
	require.Len(t, view.Messages, 4)
	assert.Equal(t, 2, count)
	assert.Equal(t, "d", view.Messages[3].Text)
}

func TestRefreshEmptyViewNoAnchor(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	sync := newSynchronizer(f, nil)

	var view feed.View
	require.NoError(t, sync.Refresh(context.Background(), &view, nil, ledger.Sentinel))
	assert.Empty(t, view.Messages)
	assert.Zero(t, f.reads)
}

func TestRefreshCycleGuard(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}

	// 1 -> 2 -> 1 is impossible by construction on the ledger, but the
	// traversal must fail fast rather than loop.
	f.accounts[ptr(1)] = messageAccountBytes(ptr(2), ptr(7), ledger.Sentinel, "a")
	f.accounts[ptr(2)] = messageAccountBytes(ptr(1), ptr(7), ledger.Sentinel, "b")

	sync := newSynchronizer(f, nil)

	var view feed.View
	err := sync.Refresh(context.Background(), &view, nil, ptr(1))
	assert.True(t, errs.HasCode(err, errs.ChainTooLong))
}

func TestRefreshNameResolution(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	f.chain(ptr(7), []ledger.Pointer{ptr(1)}, []string{"a"})

	names := func(from ledger.Pointer) (string, bool) {
		if from == ptr(7) {
			return "alice", true
		}
		return "", false
	}

	sync := newSynchronizer(f, names)

	var view feed.View
	require.NoError(t, sync.Refresh(context.Background(), &view, nil, ptr(1)))
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "alice", view.Messages[0].Name)

	// A missing mapping degrades to the fallback rendering and does not
	// abort traversal.
	f2 := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	f2.chain(ptr(8), []ledger.Pointer{ptr(1)}, []string{"a"})

	sync = newSynchronizer(f2, names)

	view = feed.View{}
	require.NoError(t, sync.Refresh(context.Background(), &view, nil, ptr(1)))
	assert.Equal(t, ptr(8).Short(), view.Messages[0].Name)
}

func TestRefreshReadFailure(t *testing.T) {
	f := &fakeLedger{accounts: make(map[ledger.Pointer][]byte)}
	sync := newSynchronizer(f, nil)

	var view feed.View
	err := sync.Refresh(context.Background(), &view, nil, ptr(1))
	assert.True(t, errs.HasCode(err, errs.AccountNotFound))
	assert.Empty(t, view.Messages)
}
