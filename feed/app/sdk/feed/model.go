package feed

import "github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"

// MessageAccount represents the decoded state of one posted message.
type MessageAccount struct {
	NextMessage ledger.Pointer
	From        ledger.Pointer
	Creator     ledger.Pointer
	Text        string
}

// UserAccount represents the decoded state of one registered participant.
type UserAccount struct {
	Banned  bool
	Creator ledger.Pointer
}

// Message represents one observed feed entry in a local view.
type Message struct {
	Pointer ledger.Pointer
	From    ledger.Pointer
	Name    string
	Text    string
}

// View represents a caller owned, ordered sequence of observed messages.
// The synchronizer only ever appends to it.
type View struct {
	Messages []Message
}

// Last returns the most recent entry in the view.
func (v *View) Last() (Message, bool) {
	if len(v.Messages) == 0 {
		return Message{}, false
	}

	return v.Messages[len(v.Messages)-1], true
}

// =============================================================================

// LoginMethod declares how users authenticate against the feed.
type LoginMethod string

// Set of login methods the config endpoint can name.
const (
	LoginLocal  LoginMethod = "local"
	LoginGoogle LoginMethod = "google"
)

// Metadata represents the bootstrap information needed to read from and
// post to a feed.
type Metadata struct {
	FirstMessage ledger.Pointer
	ProgramID    ledger.Pointer
	LoginMethod  LoginMethod
	URL          string
	WalletURL    string
}
