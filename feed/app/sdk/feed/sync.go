package feed

import (
	"context"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

// NameResolver maps an author identity to a display name. A missing
// mapping is reported with false and never blocks traversal.
type NameResolver func(from ledger.Pointer) (string, bool)

// Synchronizer extends a local feed view with every message appended to
// the chain since the view last saw it.
type Synchronizer struct {
	log    *logger.Logger
	ledger ledger.Reader
	names  NameResolver
}

// NewSynchronizer constructs a synchronizer. names may be nil, in which
// case every author degrades to the fallback rendering.
func NewSynchronizer(log *logger.Logger, lgr ledger.Reader, names NameResolver) *Synchronizer {
	return &Synchronizer{
		log:    log,
		ledger: lgr,
		names:  names,
	}
}

// Refresh appends any newly discovered messages to the view in strict
// chain order, invoking the optional onNew observer once per new entry.
// When startFrom is the sentinel the traversal resumes after the view's
// last entry, which is re-read because its successor pointer is mutated by
// the program after the view first saw it. A sentinel startFrom with an
// empty view is a no-op since there is no anchor to resume from. The
// caller must not invoke Refresh concurrently on the same view.
func (s *Synchronizer) Refresh(ctx context.Context, view *View, onNew func(Message), startFrom ledger.Pointer) error {
	current := startFrom

	if current.IsSentinel() {
		last, exists := view.Last()
		if !exists {
			return nil
		}

		acct, err := s.ledger.ReadAccount(ctx, last.Pointer)
		if err != nil {
			return err
		}

		msg, err := DecodeMessage(acct.Data)
		if err != nil {
			return err
		}

		current = msg.NextMessage
	}

	// Seed the repeat guard with everything already in the view so a
	// pointer looping back into known territory fails fast.
	seen := make(map[ledger.Pointer]struct{}, len(view.Messages))
	for _, m := range view.Messages {
		seen[m.Pointer] = struct{}{}
	}

	for !current.IsSentinel() {
		if _, exists := seen[current]; exists {
			return errs.Newf(errs.ChainTooLong, "pointer %s repeats in chain", current)
		}
		seen[current] = struct{}{}

		acct, err := s.ledger.ReadAccount(ctx, current)
		if err != nil {
			return err
		}

		msg, err := DecodeMessage(acct.Data)
		if err != nil {
			return err
		}

		m := Message{
			Pointer: current,
			From:    msg.From,
			Name:    s.resolveName(msg.From),
			Text:    msg.Text,
		}

		view.Messages = append(view.Messages, m)

		if onNew != nil {
			onNew(m)
		}

		current = msg.NextMessage
	}

	return nil
}

func (s *Synchronizer) resolveName(from ledger.Pointer) string {
	if s.names != nil {
		if name, exists := s.names(from); exists {
			return name
		}
	}

	return from.Short()
}
