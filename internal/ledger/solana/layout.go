package solana

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

// monitorAccount is the Borsh layout of a Monitor account after its
// discriminator.
type monitorAccount struct {
	Owner        solana.PublicKey
	Seed         uint64
	Bump         uint8
	Interval     int64
	LastPing     int64
	SuccessCount uint64
	FailureCount uint64
	TotalPings   uint64
	CreatedAt    int64
	Label        string
	URL          string
}

type recordPingArgs struct {
	Success   bool
	Timestamp int64
}

var errWrongAccountType = errors.New("account discriminator mismatch")

// decodeMonitor turns raw account data into a record.
func decodeMonitor(ref solana.PublicKey, data []byte, disc Discriminator) (domain.MonitorRecord, error) {
	if len(data) < discriminatorSize {
		return domain.MonitorRecord{}, fmt.Errorf("account data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:discriminatorSize], disc[:]) {
		return domain.MonitorRecord{}, errWrongAccountType
	}
	var acct monitorAccount
	if err := bin.NewBorshDecoder(data[discriminatorSize:]).Decode(&acct); err != nil {
		return domain.MonitorRecord{}, fmt.Errorf("decode monitor: %w", err)
	}
	return domain.MonitorRecord{
		Reference:       ref.String(),
		URL:             acct.URL,
		Label:           acct.Label,
		OwnerReference:  acct.Owner.String(),
		Seed:            acct.Seed,
		IntervalSeconds: acct.Interval,
		CreatedAtUnix:   acct.CreatedAt,
		SuccessCount:    acct.SuccessCount,
		FailureCount:    acct.FailureCount,
		TotalPings:      acct.TotalPings,
		LastPingUnix:    acct.LastPing,
	}, nil
}

// encodeRecordPing builds record_ping instruction data.
func encodeRecordPing(disc Discriminator, success bool, timestamp int64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, err
	}
	if err := enc.Encode(recordPingArgs{Success: success, Timestamp: timestamp}); err != nil {
		return nil, fmt.Errorf("encode record_ping: %w", err)
	}
	return buf.Bytes(), nil
}
