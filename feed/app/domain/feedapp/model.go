package feedapp

// configResponse mirrors the bootstrap document clients poll for.
type configResponse struct {
	Loading      bool   `json:"loading"`
	FirstMessage string `json:"firstMessage,omitempty"`
	ProgramID    string `json:"programId,omitempty"`
	LoginMethod  string `json:"loginMethod,omitempty"`
	URL          string `json:"url,omitempty"`
	WalletURL    string `json:"walletUrl,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserAccount string `json:"userAccount"`
}

// wsMessage is the document pushed to feed subscribers, one per observed
// message, in chain order.
type wsMessage struct {
	Pointer string `json:"pointer"`
	From    string `json:"from"`
	Name    string `json:"name"`
	Text    string `json:"text"`
}
