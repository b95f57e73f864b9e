package feed

import (
	"context"
	"encoding/binary"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

// feeLamports is the fixed per transaction fee added on top of exact
// allocation rent when requesting a funded payer.
const feeLamports = 5000

// Operation tags carried in the first byte of instruction data. The
// program dispatches on these.
const (
	opAllocate byte = iota
	opInitUser
	opPostMessage
)

// Composer builds and submits the atomic transactions the feed program
// accepts. The program identity is threaded through every call since it is
// discovered at runtime from bootstrap metadata.
type Composer struct {
	log    *logger.Logger
	submit ledger.Submitter
	fund   ledger.Funder
}

// NewComposer constructs a composer for application use.
func NewComposer(log *logger.Logger, submit ledger.Submitter, fund ledger.Funder) *Composer {
	return &Composer{
		log:    log,
		submit: submit,
		fund:   fund,
	}
}

// PostFirstMessage creates a brand new feed: one transaction that allocates
// the first message account, allocates and initializes a user account
// anchored to it, and posts the message. It returns the capabilities for
// the new message and user accounts.
func (c *Composer) PostFirstMessage(ctx context.Context, program ledger.Pointer, text string) (msg ledger.Keypair, usr ledger.Keypair, err error) {
	msg, err = ledger.NewKeypair()
	if err != nil {
		return ledger.Keypair{}, ledger.Keypair{}, errs.New(errs.Internal, err)
	}

	usr, err = ledger.NewKeypair()
	if err != nil {
		return ledger.Keypair{}, ledger.Keypair{}, errs.New(errs.Internal, err)
	}

	rent := MessageAccountSize(text) + userAccountSize

	payer, err := c.fund.FundNewAccount(ctx, rent+feeLamports)
	if err != nil {
		return ledger.Keypair{}, ledger.Keypair{}, err
	}

	tx := ledger.Transaction{
		Instructions: []ledger.Instruction{
			allocateInstruction(program, payer, msg, MessageAccountSize(text)),
			initUserInstruction(program, payer, usr, msg),
			postInstruction(program, usr, msg, ledger.Sentinel, ledger.Sentinel, text),
		},
		Signers: []ledger.Keypair{payer, msg, usr},
	}

	if err := c.submit.SubmitAndConfirm(ctx, tx); err != nil {
		return ledger.Keypair{}, ledger.Keypair{}, err
	}

	c.log.Info(ctx, "feed-postfirst", "message", msg.Public(), "user", usr.Public())

	return msg, usr, nil
}

// PostMessage posts a message for an existing user, chained after the
// specified previous message. When ban is not the sentinel, the post also
// carries a ban request against that user account; the program only honors
// it when the poster's authority chain allows it.
func (c *Composer) PostMessage(ctx context.Context, program ledger.Pointer, usr ledger.Keypair, prev ledger.Pointer, text string, ban ledger.Pointer) (ledger.Pointer, error) {
	if prev.IsSentinel() {
		return ledger.Pointer{}, errs.Newf(errs.FailedPrecondition, "posting requires a previous message reference")
	}

	msg, err := ledger.NewKeypair()
	if err != nil {
		return ledger.Pointer{}, errs.New(errs.Internal, err)
	}

	payer, err := c.fund.FundNewAccount(ctx, MessageAccountSize(text)+feeLamports)
	if err != nil {
		return ledger.Pointer{}, err
	}

	tx := ledger.Transaction{
		Instructions: []ledger.Instruction{
			allocateInstruction(program, payer, msg, MessageAccountSize(text)),
			postInstruction(program, usr, msg, prev, ban, text),
		},
		Signers: []ledger.Keypair{payer, msg, usr},
	}

	if err := c.submit.SubmitAndConfirm(ctx, tx); err != nil {
		return ledger.Pointer{}, err
	}

	c.log.Info(ctx, "feed-post", "message", msg.Public(), "prev", prev, "ban", !ban.IsSentinel())

	return msg.Public(), nil
}

// CreateUser registers a new participant: one transaction that allocates a
// user account and initializes it, with the specified message capability
// acting as the creation anchor.
func (c *Composer) CreateUser(ctx context.Context, program ledger.Pointer, anchor ledger.Keypair) (ledger.Keypair, error) {
	usr, err := ledger.NewKeypair()
	if err != nil {
		return ledger.Keypair{}, errs.New(errs.Internal, err)
	}

	payer, err := c.fund.FundNewAccount(ctx, userAccountSize+feeLamports)
	if err != nil {
		return ledger.Keypair{}, err
	}

	tx := ledger.Transaction{
		Instructions: []ledger.Instruction{
			allocateInstruction(program, payer, usr, userAccountSize),
			{
				Program: program,
				Accounts: []ledger.AccountMeta{
					{Pointer: usr.Public(), IsSigner: true},
					{Pointer: anchor.Public(), IsSigner: true},
				},
				Data: []byte{opInitUser},
			},
		},
		Signers: []ledger.Keypair{payer, usr, anchor},
	}

	if err := c.submit.SubmitAndConfirm(ctx, tx); err != nil {
		return ledger.Keypair{}, err
	}

	c.log.Info(ctx, "feed-createuser", "user", usr.Public())

	return usr, nil
}

// =============================================================================

func allocateInstruction(program ledger.Pointer, payer ledger.Keypair, account ledger.Keypair, size uint64) ledger.Instruction {
	data := make([]byte, 9)
	data[0] = opAllocate
	binary.LittleEndian.PutUint64(data[1:], size)

	return ledger.Instruction{
		Program: program,
		Accounts: []ledger.AccountMeta{
			{Pointer: payer.Public(), IsSigner: true},
			{Pointer: account.Public(), IsSigner: true},
		},
		Data: data,
	}
}

func initUserInstruction(program ledger.Pointer, payer ledger.Keypair, usr ledger.Keypair, anchor ledger.Keypair) ledger.Instruction {
	data := make([]byte, 9)
	data[0] = opInitUser
	binary.LittleEndian.PutUint64(data[1:], userAccountSize)

	return ledger.Instruction{
		Program: program,
		Accounts: []ledger.AccountMeta{
			{Pointer: payer.Public(), IsSigner: true},
			{Pointer: usr.Public(), IsSigner: true},
			{Pointer: anchor.Public(), IsSigner: true},
		},
		Data: data,
	}
}

func postInstruction(program ledger.Pointer, usr ledger.Keypair, msg ledger.Keypair, prev ledger.Pointer, ban ledger.Pointer, text string) ledger.Instruction {
	accounts := []ledger.AccountMeta{
		{Pointer: usr.Public(), IsSigner: true},
		{Pointer: msg.Public(), IsSigner: true},
	}

	if !prev.IsSentinel() {
		accounts = append(accounts, ledger.AccountMeta{Pointer: prev})

		// A ban target is only meaningful chained after a previous
		// message reference.
		if !ban.IsSentinel() {
			accounts = append(accounts, ledger.AccountMeta{Pointer: ban})
		}
	}

	return ledger.Instruction{
		Program:  program,
		Accounts: accounts,
		Data:     append([]byte{opPostMessage}, EncodeMessageText(text)...),
	}
}
