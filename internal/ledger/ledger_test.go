package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestRejectedError_Unwraps(t *testing.T) {
	err := fmt.Errorf("submit: %w", Reject(CodeNotAuthorized, "", ErrNotAuthorized))

	re, ok := IsRejected(err)
	require.True(t, ok)
	require.Equal(t, CodeNotAuthorized, re.Code)
	require.Equal(t, ErrNotAuthorized.Error(), re.Reason)
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, ok = IsRejected(errors.New("connection refused"))
	require.False(t, ok)
}

func TestRegistration_Validate(t *testing.T) {
	ok := Registration{Reference: "m1", Label: "api", URL: "https://example.com"}
	require.NoError(t, ok.Validate())

	long := ok
	long.Label = strings.Repeat("l", MaxLabelLen+1)
	require.ErrorIs(t, long.Validate(), ErrLabelTooLong)

	long = ok
	long.URL = "https://" + strings.Repeat("u", MaxURLLen)
	require.ErrorIs(t, long.Validate(), ErrURLTooLong)

	noRef := ok
	noRef.Reference = ""
	require.ErrorIs(t, noRef.Validate(), ErrInvalidReference)
}

func TestLoadCredential(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keeper.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cred, err := LoadCredential(path)
	require.NoError(t, err)
	require.Equal(t, key.PublicKey().String(), cred.Identity())
}

func TestLoadCredential_Failures(t *testing.T) {
	_, err := LoadCredential("")
	require.Error(t, err)

	_, err = LoadCredential(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	_, err = LoadCredential(bad)
	require.Error(t, err)
}
