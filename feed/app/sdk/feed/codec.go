// Package feed implements the client side protocol engine for an append
// only, ledger backed message feed: account codecs, transaction
// composition, chain synchronization, and bootstrap metadata resolution.
package feed

import (
	"bytes"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
)

// Fixed field widths of the on-ledger account layouts. The message layout
// is the ban capable variant and is fixed for the deployment: no byte
// length auto detection, since short texts make that ambiguous.
const (
	messageFixedSize = 3 * ledger.PointerSize
	userAccountSize  = 1 + ledger.PointerSize
)

// MessageAccountSize returns the exact allocation size for a message
// carrying the specified text. Undersizing makes the account unreadable,
// oversizing wastes rent.
func MessageAccountSize(text string) uint64 {
	return uint64(messageFixedSize + len(text) + 1)
}

// EncodeMessageText serializes the outbound instruction payload for a post.
// All other message fields are written by the program, not the client.
func EncodeMessageText(text string) []byte {
	data := make([]byte, 0, len(text)+1)
	data = append(data, text...)
	data = append(data, 0)

	return data
}

// DecodeMessage decodes the raw bytes of a message account.
func DecodeMessage(data []byte) (MessageAccount, error) {
	if len(data) < messageFixedSize+1 {
		return MessageAccount{}, errs.Newf(errs.MalformedAccount, "message account is %d bytes, expected at least %d", len(data), messageFixedSize+1)
	}

	term := bytes.IndexByte(data[messageFixedSize:], 0)
	if term < 0 {
		return MessageAccount{}, errs.Newf(errs.MalformedAccount, "message text is not null terminated")
	}

	var msg MessageAccount
	copy(msg.NextMessage[:], data[0:ledger.PointerSize])
	copy(msg.From[:], data[ledger.PointerSize:2*ledger.PointerSize])
	copy(msg.Creator[:], data[2*ledger.PointerSize:messageFixedSize])
	msg.Text = string(data[messageFixedSize : messageFixedSize+term])

	return msg, nil
}

// DecodeUser decodes the raw bytes of a user account.
func DecodeUser(data []byte) (UserAccount, error) {
	if len(data) < userAccountSize {
		return UserAccount{}, errs.Newf(errs.MalformedAccount, "user account is %d bytes, expected %d", len(data), userAccountSize)
	}

	var usr UserAccount
	usr.Banned = data[0] != 0
	copy(usr.Creator[:], data[1:userAccountSize])

	return usr, nil
}
