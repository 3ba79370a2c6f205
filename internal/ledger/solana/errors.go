package solana

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

// JSON-RPC error codes that mean the cluster looked at the transaction and
// refused it.
const (
	rpcSendTransactionPreflightFailure = -32002
	rpcSignatureVerificationFailure    = -32003
	rpcInvalidParams                   = -32602
)

var (
	customErrHex  = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	customErrJSON = regexp.MustCompile(`"Custom"\s*:\s*(\d+)`)
)

// classifyRPCError maps a send failure to a rejection when the cluster
// answered with a structured refusal. Everything else stays a plain error
// and counts as unreachable.
func (c *Client) classifyRPCError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("solana rpc: %w", err)
	}
	switch rpcErr.Code {
	case rpcSendTransactionPreflightFailure, rpcSignatureVerificationFailure, rpcInvalidParams:
	default:
		return fmt.Errorf("solana rpc: %w", err)
	}

	if code, ok := customCode(rpcErr.Message, rpcErr.Data); ok {
		return c.programError(code, err)
	}
	return ledger.Reject(rpcErr.Code, rpcErr.Message, err)
}

// classifyTxError handles a transaction that landed but failed on chain.
func (c *Client) classifyTxError(txErr interface{}) error {
	raw, _ := json.Marshal(txErr)
	err := fmt.Errorf("transaction failed: %s", raw)
	if code, ok := customCode("", txErr); ok {
		return c.programError(code, err)
	}
	return ledger.Reject(ledger.CodeTransaction, string(raw), err)
}

func (c *Client) programError(code int, err error) error {
	var sentinel error
	switch code {
	case ledger.CodeOverflow:
		sentinel = ledger.ErrCounterOverflow
	case ledger.CodeNotFound:
		sentinel = ledger.ErrMonitorNotFound
	case ledger.CodeInvalidReference, 2006:
		sentinel = ledger.ErrInvalidReference
	}
	reason := "custom program error " + strconv.Itoa(code)
	if e, ok := c.descriptor.ErrorFor(code); ok {
		reason = e.Name + ": " + e.Msg
	}
	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return ledger.Reject(code, reason, err)
}

func customCode(message string, data interface{}) (int, bool) {
	if m := customErrHex.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseInt(m[1], 16, 32); err == nil {
			return int(v), true
		}
	}
	if data == nil {
		return 0, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, false
	}
	if m := customErrJSON.FindSubmatch(raw); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			return v, true
		}
	}
	return 0, false
}
