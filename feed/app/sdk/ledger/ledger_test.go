package ledger_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePointer(t *testing.T) {
	var p ledger.Pointer
	for i := range p {
		p[i] = byte(i)
	}

	fromB58, err := ledger.ParsePointer(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, fromB58)

	fromHex, err := ledger.ParsePointer(hex.EncodeToString(p[:]))
	require.NoError(t, err)
	assert.Equal(t, p, fromHex)

	_, err = ledger.ParsePointer("not-a-pointer")
	assert.Error(t, err)

	_, err = ledger.ParsePointer("")
	assert.Error(t, err)
}

func TestSentinel(t *testing.T) {
	assert.True(t, ledger.Sentinel.IsSentinel())

	var p ledger.Pointer
	p[31] = 1
	assert.False(t, p.IsSentinel())
}

func TestKeypairHexRoundTrip(t *testing.T) {
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)

	back, err := ledger.KeypairFromHex(kp.Hex())
	require.NoError(t, err)
	assert.Equal(t, kp.Public(), back.Public())

	_, err = ledger.KeypairFromHex("abcd")
	assert.Error(t, err)
}

func TestLoadOrCreateKeypair(t *testing.T) {
	dir := t.TempDir()

	kp, err := ledger.LoadOrCreateKeypair(dir)
	require.NoError(t, err)

	again, err := ledger.LoadOrCreateKeypair(dir)
	require.NoError(t, err)
	assert.Equal(t, kp.Public(), again.Public())
}

func TestTransactionEncode(t *testing.T) {
	payer, err := ledger.NewKeypair()
	require.NoError(t, err)

	var program ledger.Pointer
	program[0] = 9

	tx := ledger.Transaction{
		Instructions: []ledger.Instruction{
			{
				Program: program,
				Accounts: []ledger.AccountMeta{
					{Pointer: payer.Public(), IsSigner: true},
				},
				Data: []byte{1, 2, 3},
			},
		},
		Signers: []ledger.Keypair{payer},
	}

	wire, err := tx.Encode()
	require.NoError(t, err)

	// [numSigners:1][pub:32][sig:64] then the message bytes.
	require.Greater(t, len(wire), 97)
	assert.Equal(t, byte(1), wire[0])

	pub := payer.Public()
	assert.Equal(t, pub[:], wire[1:33])

	msg := wire[97:]
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub[:]), msg, wire[33:97]))

	// [numIx:1][program:32][numAccounts:1][acct:32][flag:1][len:2][data]
	assert.Equal(t, byte(1), msg[0])
	assert.Equal(t, program[:], msg[1:33])
	assert.Equal(t, byte(1), msg[33])
	assert.Equal(t, byte(1), msg[66])
}

func TestTransactionEncodeEmpty(t *testing.T) {
	_, err := ledger.Transaction{}.Encode()
	assert.Error(t, err)

	_, err = ledger.Transaction{
		Instructions: []ledger.Instruction{{}},
		Signers:      []ledger.Keypair{{}},
	}.Encode()
	assert.Error(t, err)
}
