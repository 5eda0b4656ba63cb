package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New("test-secret-for-unit-tests", 100000)
	require.NoError(t, err)
	return engine
}

func TestRoundTrip(t *testing.T) {
	engine := testEngine(t)

	cases := []string{
		"John Doe",
		"",
		"My diagnosis is diabetes, SSN 123-45-6789",
		"ünïcódé — 日本語テキスト",
		"embedded\x00null\x00bytes",
		strings.Repeat("long ", 1000),
	}

	for _, plaintext := range cases {
		blob, err := engine.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, blob)
		assert.True(t, strings.HasPrefix(blob, "v1:"))

		decrypted, err := engine.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptionIsNondeterministic(t *testing.T) {
	engine := testEngine(t)

	first, err := engine.Encrypt("same input")
	require.NoError(t, err)
	second, err := engine.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh nonce per encryption")
}

func TestTamperDetection(t *testing.T) {
	engine := testEngine(t)

	blob, err := engine.Encrypt("protected value")
	require.NoError(t, err)

	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(blob, "v1:"))
	require.NoError(t, err)

	// Flip one byte at every position; the tag check must always fail.
	for i := range sealed {
		mutated := make([]byte, len(sealed))
		copy(mutated, sealed)
		mutated[i] ^= 0x01

		_, err := engine.Decrypt("v1:" + base64.RawURLEncoding.EncodeToString(mutated))
		assert.ErrorIs(t, err, ErrDecrypt, "byte %d", i)
	}
}

func TestDecryptRejectsMalformedBlobs(t *testing.T) {
	engine := testEngine(t)

	for _, blob := range []string{"", "not-a-blob", "v1:", "v1:%%%", "v1:AAAA"} {
		_, err := engine.Decrypt(blob)
		assert.ErrorIs(t, err, ErrDecrypt, "blob %q", blob)
	}
}

func TestWrongKeyFailsDecryption(t *testing.T) {
	engine := testEngine(t)
	other, err := New("a-different-secret", 100000)
	require.NoError(t, err)

	blob, err := engine.Encrypt("cross-key read")
	require.NoError(t, err)

	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSearchHash(t *testing.T) {
	engine := testEngine(t)

	first, err := engine.SearchHash("jane@example.com")
	require.NoError(t, err)
	second, err := engine.SearchHash("jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second, "deterministic for identical input")

	upper, err := engine.SearchHash("JANE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, first, upper, "case-insensitive equality")

	different, err := engine.SearchHash("john@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, different)

	assert.Len(t, first, 64)
	assert.NotContains(t, first, "jane")

	// A different secret keys a different hash space.
	other, err := New("a-different-secret", 100000)
	require.NoError(t, err)
	otherHash, err := other.SearchHash("jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, otherHash)
}

func TestDisabledEngine(t *testing.T) {
	var engine *Engine
	assert.False(t, engine.Enabled())

	_, err := engine.Encrypt("x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = engine.Decrypt("v1:x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = engine.SearchHash("x")
	assert.ErrorIs(t, err, ErrUnavailable)

	zero := &Engine{}
	assert.False(t, zero.Enabled())
}

func TestNewValidation(t *testing.T) {
	_, err := New("", 100000)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New("secret", 1000)
	assert.Error(t, err, "iteration floor enforced")
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a := DeriveKey("secret", "salt", 100000)
	b := DeriveKey("secret", "salt", 100000)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	c := DeriveKey("secret", "other-salt", 100000)
	assert.NotEqual(t, a, c)
}
