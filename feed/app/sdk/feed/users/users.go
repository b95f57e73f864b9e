// Package users provides a process lifetime registry of logged in users
// and their signing capabilities.
package users

import (
	"context"
	"sync"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

// User represents a logged in participant.
type User struct {
	Name       string
	Capability ledger.Keypair
}

// Registry provides user registration with create-if-absent semantics:
// the first login under a name registers a user account on the ledger,
// later logins return the existing capability.
type Registry struct {
	log      *logger.Logger
	composer *feed.Composer
	anchor   ledger.Keypair
	users    map[string]User
	muUsers  sync.RWMutex
}

// New creates a new user registry. The anchor capability vouches for every
// user created through it.
func New(log *logger.Logger, composer *feed.Composer, anchor ledger.Keypair) *Registry {
	r := Registry{
		log:      log,
		composer: composer,
		anchor:   anchor,
		users:    make(map[string]User),
	}

	return &r
}

// Login returns the user registered under the name, creating a user
// account on the ledger on first sight. Two racing logins for the same
// name both succeed: the loser's freshly created account is discarded and
// the winner's capability is returned to both.
func (r *Registry) Login(ctx context.Context, program ledger.Pointer, name string) (User, error) {
	r.muUsers.RLock()
	usr, exists := r.users[name]
	r.muUsers.RUnlock()

	if exists {
		return usr, nil
	}

	capability, err := r.composer.CreateUser(ctx, program, r.anchor)
	if err != nil {
		return User{}, err
	}

	r.muUsers.Lock()
	defer r.muUsers.Unlock()

	if usr, exists := r.users[name]; exists {
		return usr, nil
	}

	usr = User{
		Name:       name,
		Capability: capability,
	}
	r.users[name] = usr

	r.log.Info(ctx, "users-login", "name", name, "id", capability.Public())

	return usr, nil
}

// LookupName maps a user account identity back to its registered name.
// It satisfies the synchronizer's name resolution contract.
func (r *Registry) LookupName(from ledger.Pointer) (string, bool) {
	r.muUsers.RLock()
	defer r.muUsers.RUnlock()

	for _, usr := range r.users {
		if usr.Capability.Public() == from {
			return usr.Name, true
		}
	}

	return "", false
}
