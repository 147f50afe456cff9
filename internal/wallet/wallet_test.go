package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keypairJSON(t *testing.T, priv ed25519.PrivateKey) []byte {
	t.Helper()
	values := make([]int, len(priv))
	for i, b := range priv {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	return raw
}

func sequentialSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestParse(t *testing.T) {
	w, err := Parse(keypairJSON(t, ed25519.NewKeyFromSeed(sequentialSeed())))
	require.NoError(t, err)

	assert.Equal(t, "9C6hybhQ6Aycep9jaUnP6uL9ZYvDjUp1aSkFWPUFJtpj", w.PublicKey().String())

	// The signing key must round-trip against the advertised address.
	msg := []byte("registration payload")
	sig := ed25519.Sign(w.PrivateKey(), msg)
	assert.True(t, ed25519.Verify(w.PublicKey().Bytes(), msg, sig))
}

func TestParsePublicKeyMismatch(t *testing.T) {
	corrupt := ed25519.NewKeyFromSeed(sequentialSeed())
	corrupt[40] ^= 0xff

	_, err := Parse(keypairJSON(t, corrupt))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public key mismatch")
}

func TestParseWrongLength(t *testing.T) {
	_, err := Parse([]byte("[1,2,3]"))
	assert.Error(t, err)
}

func TestParseByteOutOfRange(t *testing.T) {
	values := make([]int, ed25519.PrivateKeySize)
	values[0] = 999
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	_, err = Parse(raw)
	assert.Error(t, err)
}

func TestParseNotJSON(t *testing.T) {
	_, err := Parse([]byte("not a keypair"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, keypairJSON(t, ed25519.NewKeyFromSeed(sequentialSeed())), 0o600))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9C6hybhQ6Aycep9jaUnP6uL9ZYvDjUp1aSkFWPUFJtpj", w.PublicKey().String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
