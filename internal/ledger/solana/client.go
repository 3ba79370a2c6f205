package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

var _ ledger.Client = (*Client)(nil)

// Options configures the RPC backend.
type Options struct {
	Endpoint   string
	ProgramID  solana.PublicKey
	Descriptor *Descriptor
	// Commitment is the level SubmitPing waits for: processed, confirmed
	// or finalized.
	Commitment   string
	PollInterval time.Duration
	// ConfirmTimeout caps how long SubmitPing polls for a signature status.
	ConfirmTimeout time.Duration
}

// Client talks to the uptime program over Solana JSON-RPC.
type Client struct {
	rpc        *rpc.Client
	program    solana.PublicKey
	descriptor *Descriptor
	cred       *ledger.Credential
	log        *zap.Logger

	commitment     rpc.CommitmentType
	monitorDisc    Discriminator
	recordPingDisc Discriminator
	pollInterval   time.Duration
	confirmTimeout time.Duration
}

func New(opts Options, cred *ledger.Credential, log *zap.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("solana endpoint is empty")
	}
	if cred == nil {
		return nil, errors.New("solana ledger needs a credential")
	}
	if opts.ProgramID.IsZero() {
		return nil, ErrNoProgramID
	}
	commitment, err := parseCommitment(opts.Commitment)
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		rpc:            rpc.New(opts.Endpoint),
		program:        opts.ProgramID,
		descriptor:     opts.Descriptor,
		cred:           cred,
		log:            log,
		commitment:     commitment,
		monitorDisc:    opts.Descriptor.MonitorDiscriminator(),
		recordPingDisc: opts.Descriptor.RecordPingDiscriminator(),
		pollInterval:   opts.PollInterval,
		confirmTimeout: opts.ConfirmTimeout,
	}, nil
}

func parseCommitment(s string) (rpc.CommitmentType, error) {
	switch s {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	default:
		return "", fmt.Errorf("unknown commitment %q", s)
	}
}

// ListMonitors fetches every Monitor account owned by the program. Accounts
// that fail to decode are logged and skipped.
func (c *Client) ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error) {
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.program, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(c.monitorDisc[:])},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts: %w", err)
	}

	out := make([]domain.MonitorRecord, 0, len(accounts))
	for _, ka := range accounts {
		if ka == nil || ka.Account == nil || ka.Account.Data == nil {
			continue
		}
		rec, err := decodeMonitor(ka.Pubkey, ka.Account.Data.GetBinary(), c.monitorDisc)
		if err != nil {
			c.log.Warn("monitor_decode_error", zap.String("monitor", ka.Pubkey.String()), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// SubmitPing sends record_ping signed by the credential and waits for the
// configured commitment. The receipt is the transaction signature.
func (c *Client) SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	monitor, err := solana.PublicKeyFromBase58(monitorRef)
	if err != nil {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeInvalidReference, "", fmt.Errorf("%w: %v", ledger.ErrInvalidReference, err))
	}
	data, err := encodeRecordPing(c.recordPingDisc, success, timestamp)
	if err != nil {
		return ledger.Receipt{}, err
	}
	reporter := c.cred.PublicKey()
	ix := solana.NewInstruction(c.program, solana.AccountMetaSlice{
		solana.Meta(monitor).WRITE(),
		solana.Meta(reporter).SIGNER(),
	}, data)

	latest, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, latest.Value.Blockhash, solana.TransactionPayer(reporter))
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("build transaction: %w", err)
	}
	key := c.cred.PrivateKey()
	if _, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(reporter) {
			return &key
		}
		return nil
	}); err != nil {
		return ledger.Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return ledger.Receipt{}, c.classifyRPCError(err)
	}
	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return ledger.Receipt{}, err
	}
	return ledger.Receipt{Reference: sig.String()}, nil
}

var errNotConfirmed = errors.New("transaction not yet confirmed")

func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return struct{}{}, fmt.Errorf("get signature status: %w", err)
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return struct{}{}, errNotConfirmed
		}
		st := res.Value[0]
		if st.Err != nil {
			return struct{}{}, backoff.Permanent(c.classifyTxError(st.Err))
		}
		if !reached(st.ConfirmationStatus, c.commitment) {
			return struct{}{}, errNotConfirmed
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.pollInterval)),
		backoff.WithMaxElapsedTime(c.confirmTimeout),
	)
	if err != nil {
		if _, ok := ledger.IsRejected(err); ok {
			return err
		}
		return fmt.Errorf("confirm %s: %w", sig, err)
	}
	return nil
}

func reached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	return rank[string(got)] >= rank[string(want)] && rank[string(got)] > 0
}
