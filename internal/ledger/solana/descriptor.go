package solana

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const discriminatorSize = 8

// Discriminator is Anchor's 8-byte type tag.
type Discriminator [discriminatorSize]byte

const (
	monitorAccountName    = "Monitor"
	recordPingInstruction = "record_ping"
)

// Descriptor is the subset of an Anchor IDL the keeper needs: where the
// program lives, the discriminators it uses and its error table.
type Descriptor struct {
	Address      string            `json:"address"`
	ProgramID    string            `json:"programId"`
	ID           string            `json:"id"`
	Metadata     descriptorAddress `json:"metadata"`
	Program      descriptorAddress `json:"program"`
	Instructions []descriptorItem  `json:"instructions"`
	Accounts     []descriptorItem  `json:"accounts"`
	Errors       []DescriptorError `json:"errors"`
}

type descriptorAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type descriptorItem struct {
	Name          string `json:"name"`
	Discriminator []int  `json:"discriminator"`
}

type DescriptorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// LoadDescriptor reads an IDL JSON file.
func LoadDescriptor(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program descriptor: %w", err)
	}
	return ParseDescriptor(raw)
}

func ParseDescriptor(raw []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse program descriptor: %w", err)
	}
	return &d, nil
}

var ErrNoProgramID = errors.New("program id not found in PROGRAM_ID or descriptor")

// ResolveProgramID picks the program address: override first, then the
// descriptor's address, metadata.address, program.address, programId, id.
func ResolveProgramID(override string, d *Descriptor) (solana.PublicKey, error) {
	candidates := []string{override}
	if d != nil {
		candidates = append(candidates, d.Address, d.Metadata.Address, d.Program.Address, d.ProgramID, d.ID)
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(c)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("program id %q: %w", c, err)
		}
		return pk, nil
	}
	return solana.PublicKey{}, ErrNoProgramID
}

// MonitorDiscriminator is the account type tag for Monitor.
func (d *Descriptor) MonitorDiscriminator() Discriminator {
	if d != nil {
		if disc, ok := findDiscriminator(d.Accounts, monitorAccountName); ok {
			return disc
		}
	}
	return sighash("account", monitorAccountName)
}

// RecordPingDiscriminator is the instruction tag for record_ping.
func (d *Descriptor) RecordPingDiscriminator() Discriminator {
	if d != nil {
		if disc, ok := findDiscriminator(d.Instructions, recordPingInstruction); ok {
			return disc
		}
	}
	return sighash("global", recordPingInstruction)
}

// ErrorFor looks up a program error code.
func (d *Descriptor) ErrorFor(code int) (DescriptorError, bool) {
	if d != nil {
		for _, e := range d.Errors {
			if e.Code == code {
				return e, true
			}
		}
	}
	for _, e := range builtinErrors {
		if e.Code == code {
			return e, true
		}
	}
	return DescriptorError{}, false
}

// Framework errors the program can surface for record_ping.
var builtinErrors = []DescriptorError{
	{Code: 2006, Name: "ConstraintSeeds", Msg: "A seeds constraint was violated"},
	{Code: 3007, Name: "AccountOwnedByWrongProgram", Msg: "The given account is owned by a different program than expected"},
	{Code: 3012, Name: "AccountNotInitialized", Msg: "The program expected this account to be already initialized"},
}

func findDiscriminator(items []descriptorItem, name string) (Discriminator, bool) {
	for _, it := range items {
		if normalizeName(it.Name) == normalizeName(name) && len(it.Discriminator) == discriminatorSize {
			var disc Discriminator
			for i, b := range it.Discriminator {
				if b < 0 || b > 255 {
					return Discriminator{}, false
				}
				disc[i] = byte(b)
			}
			return disc, true
		}
	}
	return Discriminator{}, false
}

// normalizeName lets camelCase and snake_case IDL names match.
func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

func sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var disc Discriminator
	copy(disc[:], sum[:discriminatorSize])
	return disc
}
