package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/errs"
)

// Set of timing values for transaction confirmation.
const (
	confirmTimeout  = 30 * time.Second
	confirmInterval = 500 * time.Millisecond
)

// RPCClient provides access to the ledger node over JSON-RPC 2.0. It
// implements the Reader, Submitter and Funder interfaces.
type RPCClient struct {
	addr   string
	client *http.Client
}

// NewRPCClient constructs a client for the specified node address.
func NewRPCClient(addr string) *RPCClient {
	return &RPCClient{
		addr: addr,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ReadAccount returns the raw bytes and owning program for the specified
// identity, or AccountNotFound when no account backs it.
func (c *RPCClient) ReadAccount(ctx context.Context, ptr Pointer) (Account, error) {
	var result struct {
		Value *struct {
			Data  string `json:"data"`
			Owner string `json:"owner"`
		} `json:"value"`
	}

	if err := c.call(ctx, "getAccountInfo", []any{ptr.String()}, &result); err != nil {
		return Account{}, err
	}

	if result.Value == nil {
		return Account{}, errs.Newf(errs.AccountNotFound, "account %s", ptr)
	}

	data, err := base64.StdEncoding.DecodeString(result.Value.Data)
	if err != nil {
		return Account{}, errs.Newf(errs.MalformedAccount, "account %s: data: %s", ptr, err)
	}

	owner, err := ParsePointer(result.Value.Owner)
	if err != nil {
		return Account{}, errs.Newf(errs.MalformedAccount, "account %s: owner: %s", ptr, err)
	}

	return Account{Data: data, Owner: owner}, nil
}

// SubmitAndConfirm submits the transaction and blocks until the ledger
// reports it committed, it is rejected, or the confirmation window expires.
func (c *RPCClient) SubmitAndConfirm(ctx context.Context, tx Transaction) error {
	wire, err := tx.Encode()
	if err != nil {
		return errs.Newf(errs.TransactionRejected, "encode: %s", err)
	}

	var sig string
	if err := c.call(ctx, "sendTransaction", []any{base64.StdEncoding.EncodeToString(wire)}, &sig); err != nil {
		return err
	}

	return c.confirm(ctx, sig)
}

// FundNewAccount generates a fresh payer capability and asks the node to
// fund it with the specified minimum balance.
func (c *RPCClient) FundNewAccount(ctx context.Context, minimumLamports uint64) (Keypair, error) {
	kp, err := NewKeypair()
	if err != nil {
		return Keypair{}, errs.New(errs.InsufficientFunds, err)
	}

	var sig string
	if err := c.call(ctx, "requestAirdrop", []any{kp.Public().String(), minimumLamports}, &sig); err != nil {
		return Keypair{}, errs.Newf(errs.InsufficientFunds, "airdrop %d: %s", minimumLamports, err)
	}

	if err := c.confirm(ctx, sig); err != nil {
		return Keypair{}, errs.Newf(errs.InsufficientFunds, "airdrop %d: %s", minimumLamports, err)
	}

	return kp, nil
}

func (c *RPCClient) confirm(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	for {
		var result struct {
			Value []*struct {
				ConfirmationStatus string `json:"confirmationStatus"`
				Err                any    `json:"err"`
			} `json:"value"`
		}

		if err := c.call(ctx, "getSignatureStatuses", []any{[]string{sig}}, &result); err != nil {
			return err
		}

		if len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]

			if status.Err != nil {
				return errs.Newf(errs.TransactionRejected, "transaction %s: %v", sig, status.Err)
			}

			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errs.Newf(errs.ConfirmationTimeout, "transaction %s", sig)

		case <-time.After(confirmInterval):
		}
	}
}

// call performs a single JSON-RPC round trip. Application level errors are
// reported as TransactionRejected, transport failures as UnreachableEndpoint.
func (c *RPCClient) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int    `json:"id"`
		Method  string `json:"method"`
		Params  any    `json:"params"`
	}{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Newf(errs.UnreachableEndpoint, "%s: %s", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Newf(errs.UnreachableEndpoint, "%s: read: %s", method, err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errs.Newf(errs.UnreachableEndpoint, "%s: parse: %s", method, err)
	}

	if envelope.Error != nil {
		return errs.Newf(errs.TransactionRejected, "%s: rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return errs.Newf(errs.UnreachableEndpoint, "%s: result: %s", method, err)
		}
	}

	return nil
}

// =============================================================================

// Encode serializes the transaction into its wire form: the instruction
// message followed by one signature per signer over those message bytes.
func (tx Transaction) Encode() ([]byte, error) {
	if len(tx.Instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}

	var msg bytes.Buffer
	msg.WriteByte(byte(len(tx.Instructions)))

	for _, ix := range tx.Instructions {
		msg.Write(ix.Program[:])
		msg.WriteByte(byte(len(ix.Accounts)))

		for _, acct := range ix.Accounts {
			msg.Write(acct.Pointer[:])
			if acct.IsSigner {
				msg.WriteByte(1)
			} else {
				msg.WriteByte(0)
			}
		}

		var dataLen [2]byte
		binary.LittleEndian.PutUint16(dataLen[:], uint16(len(ix.Data)))
		msg.Write(dataLen[:])
		msg.Write(ix.Data)
	}

	var wire bytes.Buffer
	wire.WriteByte(byte(len(tx.Signers)))

	for _, kp := range tx.Signers {
		if kp.IsZero() {
			return nil, fmt.Errorf("zero value signer")
		}

		pub := kp.Public()
		wire.Write(pub[:])
		wire.Write(kp.Sign(msg.Bytes()))
	}

	wire.Write(msg.Bytes())

	return wire.Bytes(), nil
}
