package feed_test

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	txs []ledger.Transaction
	err error
}

func (f *fakeSubmitter) SubmitAndConfirm(ctx context.Context, tx ledger.Transaction) error {
	if f.err != nil {
		return f.err
	}

	f.txs = append(f.txs, tx)
	return nil
}

type fakeFunder struct {
	requests []uint64
	err      error
}

func (f *fakeFunder) FundNewAccount(ctx context.Context, minimumLamports uint64) (ledger.Keypair, error) {
	if f.err != nil {
		return ledger.Keypair{}, f.err
	}

	f.requests = append(f.requests, minimumLamports)
	return ledger.NewKeypair()
}

func newComposer(submit *fakeSubmitter, fund *fakeFunder) *feed.Composer {
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	return feed.NewComposer(log, submit, fund)
}

func TestPostFirstMessageShape(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{}
	composer := newComposer(submit, fund)

	msg, usr, err := composer.PostFirstMessage(context.Background(), ptr(9), "hello")
	require.NoError(t, err)

	require.Len(t, submit.txs, 1)
	tx := submit.txs[0]

	require.Len(t, tx.Instructions, 3)

	// Allocation for the message account, sized exactly.
	alloc := tx.Instructions[0]
	require.Len(t, alloc.Data, 9)
	assert.Equal(t, feed.MessageAccountSize("hello"), binary.LittleEndian.Uint64(alloc.Data[1:]))
	require.Len(t, alloc.Accounts, 2)
	assert.True(t, alloc.Accounts[0].IsSigner)
	assert.Equal(t, msg.Public(), alloc.Accounts[1].Pointer)
	assert.True(t, alloc.Accounts[1].IsSigner)

	// User initialization anchored to the message account.
	initUser := tx.Instructions[1]
	require.Len(t, initUser.Accounts, 3)
	assert.Equal(t, usr.Public(), initUser.Accounts[1].Pointer)
	assert.Equal(t, msg.Public(), initUser.Accounts[2].Pointer)
	assert.True(t, initUser.Accounts[2].IsSigner)

	// The first post carries no previous message reference.
	post := tx.Instructions[2]
	require.Len(t, post.Accounts, 2)
	assert.Equal(t, usr.Public(), post.Accounts[0].Pointer)
	assert.True(t, post.Accounts[0].IsSigner)
	assert.Equal(t, msg.Public(), post.Accounts[1].Pointer)
	assert.True(t, post.Accounts[1].IsSigner)

	assert.Equal(t, ptr(9), post.Program)

	// Rent covers both accounts plus the fixed fee.
	require.Len(t, fund.requests, 1)
	assert.Equal(t, feed.MessageAccountSize("hello")+33+5000, fund.requests[0])
}

func TestPostMessageShape(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{}
	composer := newComposer(submit, fund)

	usr, err := ledger.NewKeypair()
	require.NoError(t, err)

	prev := ptr(5)

	msgPtr, err := composer.PostMessage(context.Background(), ptr(9), usr, prev, "hi", ledger.Sentinel)
	require.NoError(t, err)
	assert.NotEqual(t, ledger.Sentinel, msgPtr)

	require.Len(t, submit.txs, 1)
	tx := submit.txs[0]
	require.Len(t, tx.Instructions, 2)

	post := tx.Instructions[1]
	require.Len(t, post.Accounts, 3)
	assert.Equal(t, usr.Public(), post.Accounts[0].Pointer)
	assert.Equal(t, msgPtr, post.Accounts[1].Pointer)
	assert.Equal(t, prev, post.Accounts[2].Pointer)
	assert.False(t, post.Accounts[2].IsSigner)
}

func TestPostMessageWithBan(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{}
	composer := newComposer(submit, fund)

	usr, err := ledger.NewKeypair()
	require.NoError(t, err)

	_, err = composer.PostMessage(context.Background(), ptr(9), usr, ptr(5), "bye", ptr(6))
	require.NoError(t, err)

	require.Len(t, submit.txs, 1)
	tx := submit.txs[0]
	require.Len(t, tx.Instructions, 2)

	// One extra non-signing account compared to the no-ban case.
	post := tx.Instructions[1]
	require.Len(t, post.Accounts, 4)
	assert.Equal(t, ptr(6), post.Accounts[3].Pointer)
	assert.False(t, post.Accounts[3].IsSigner)
}

func TestPostMessageRequiresPrev(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{}
	composer := newComposer(submit, fund)

	usr, err := ledger.NewKeypair()
	require.NoError(t, err)

	_, err = composer.PostMessage(context.Background(), ptr(9), usr, ledger.Sentinel, "hi", ledger.Sentinel)
	assert.True(t, errs.HasCode(err, errs.FailedPrecondition))
	assert.Empty(t, fund.requests)
	assert.Empty(t, submit.txs)
}

func TestFundingFailureAborts(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{err: errs.Newf(errs.InsufficientFunds, "no faucet")}
	composer := newComposer(submit, fund)

	usr, err := ledger.NewKeypair()
	require.NoError(t, err)

	_, err = composer.PostMessage(context.Background(), ptr(9), usr, ptr(5), "hi", ledger.Sentinel)
	assert.True(t, errs.HasCode(err, errs.InsufficientFunds))

	// Nothing was submitted, so no partial state exists.
	assert.Empty(t, submit.txs)
}

func TestCreateUserShape(t *testing.T) {
	submit := &fakeSubmitter{}
	fund := &fakeFunder{}
	composer := newComposer(submit, fund)

	anchor, err := ledger.NewKeypair()
	require.NoError(t, err)

	usr, err := composer.CreateUser(context.Background(), ptr(9), anchor)
	require.NoError(t, err)

	require.Len(t, submit.txs, 1)
	tx := submit.txs[0]
	require.Len(t, tx.Instructions, 2)

	initUser := tx.Instructions[1]
	require.Len(t, initUser.Accounts, 2)
	assert.Equal(t, usr.Public(), initUser.Accounts[0].Pointer)
	assert.True(t, initUser.Accounts[0].IsSigner)
	assert.Equal(t, anchor.Public(), initUser.Accounts[1].Pointer)
	assert.True(t, initUser.Accounts[1].IsSigner)

	require.Len(t, fund.requests, 1)
	assert.Equal(t, uint64(33+5000), fund.requests[0])
}
