package feed

import (
	"context"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
)

// UserReader answers questions about registered participants from their
// on-ledger state.
type UserReader struct {
	ledger ledger.Reader
}

// NewUserReader constructs a reader over the specified ledger access.
func NewUserReader(lgr ledger.Reader) *UserReader {
	return &UserReader{
		ledger: lgr,
	}
}

// IsBanned reports whether the user behind the identity has been banned.
// The flag only ever transitions false to true, so a true result is final.
func (r *UserReader) IsBanned(ctx context.Context, identity ledger.Pointer) (bool, error) {
	usr, err := r.read(ctx, identity)
	if err != nil {
		return false, err
	}

	return usr.Banned, nil
}

// Creator returns the authority the user's ban chain points to: the
// account that vouched for this user at registration.
func (r *UserReader) Creator(ctx context.Context, identity ledger.Pointer) (ledger.Pointer, error) {
	usr, err := r.read(ctx, identity)
	if err != nil {
		return ledger.Pointer{}, err
	}

	return usr.Creator, nil
}

func (r *UserReader) read(ctx context.Context, identity ledger.Pointer) (UserAccount, error) {
	acct, err := r.ledger.ReadAccount(ctx, identity)
	if err != nil {
		return UserAccount{}, err
	}

	return DecodeUser(acct.Data)
}
