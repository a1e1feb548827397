package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"", "174379", "consumer-secret-value", "bfb279f9aa9bdbcf158e97dd71a467cd2e0c89305"} {
		enc, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plaintext, dec)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	a, err := c.Encrypt("passkey")
	require.NoError(t, err)
	b, err := c.Encrypt("passkey")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsCorruptCiphertext(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	enc, err := c.Encrypt("passkey")
	require.NoError(t, err)

	// Flip one byte in the sealed blob.
	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	corrupted := base64.StdEncoding.EncodeToString(raw)

	_, err = c.Decrypt(corrupted)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	for _, input := range []string{"", "not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decrypt(input)
		assert.ErrorIs(t, err, ErrDecrypt, "input %q", input)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, err := NewCipher(testKey())
	require.NoError(t, err)

	otherKey := testKey()
	otherKey[0] ^= 0xff
	c2, err := NewCipher(otherKey)
	require.NoError(t, err)

	enc, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(enc)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewCipherRejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("too-short"))
	assert.Error(t, err)
}
