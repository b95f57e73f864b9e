package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
	"github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"github.com/ardanlabs/messagefeed/feed/foundation/logger"
)

// pollInterval is the fixed sleep between bootstrap attempts. The expected
// wait is bounded and operator visible, so no backoff.
const pollInterval = 1000 * time.Millisecond

// ResolveFeedMetadata polls the config endpoint until it reports a ready
// feed, then returns the parsed metadata. Transport and parse failures are
// treated as "not ready" and retried. The call only fails when the context
// is canceled or the response names an unknown login method.
func ResolveFeedMetadata(ctx context.Context, log *logger.Logger, configURL string) (Metadata, error) {
	client := http.Client{
		Timeout: 5 * time.Second,
	}

	for {
		md, ready, err := fetchMetadata(ctx, &client, configURL)
		switch {
		case err != nil:
			if errs.HasCode(err, errs.UnsupportedLoginMethod) {
				return Metadata{}, err
			}
			log.Info(ctx, "feed-bootstrap", "status", "config not ready", "err", err)

		case !ready:
			log.Info(ctx, "feed-bootstrap", "status", "feed still loading")

		default:
			return md, nil
		}

		select {
		case <-ctx.Done():
			return Metadata{}, ctx.Err()

		case <-time.After(pollInterval):
		}
	}
}

func fetchMetadata(ctx context.Context, client *http.Client, configURL string) (Metadata, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return Metadata{}, false, errs.Newf(errs.UnreachableEndpoint, "new request: %s", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Metadata{}, false, errs.Newf(errs.UnreachableEndpoint, "get config: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, false, errs.Newf(errs.UnreachableEndpoint, "get config: status %d", resp.StatusCode)
	}

	var doc struct {
		Loading      bool   `json:"loading"`
		FirstMessage string `json:"firstMessage"`
		ProgramID    string `json:"programId"`
		LoginMethod  string `json:"loginMethod"`
		URL          string `json:"url"`
		WalletURL    string `json:"walletUrl"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Metadata{}, false, errs.Newf(errs.UnreachableEndpoint, "decode config: %s", err)
	}

	if doc.Loading {
		return Metadata{}, false, nil
	}

	firstMessage, err := ledger.ParsePointer(doc.FirstMessage)
	if err != nil {
		return Metadata{}, false, err
	}

	programID, err := ledger.ParsePointer(doc.ProgramID)
	if err != nil {
		return Metadata{}, false, err
	}

	var method LoginMethod
	switch LoginMethod(doc.LoginMethod) {
	case LoginLocal, LoginGoogle:
		method = LoginMethod(doc.LoginMethod)

	default:
		return Metadata{}, false, errs.Newf(errs.UnsupportedLoginMethod, "login method %q", doc.LoginMethod)
	}

	md := Metadata{
		FirstMessage: firstMessage,
		ProgramID:    programID,
		LoginMethod:  method,
		URL:          doc.URL,
		WalletURL:    doc.WalletURL,
	}

	return md, true, nil
}
