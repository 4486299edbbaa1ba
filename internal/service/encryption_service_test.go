package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"ebook-marketplace/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testVaultKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestVault(t *testing.T) *AESVault {
	t.Helper()
	v, err := NewAESVault(testVaultKey)
	require.NoError(t, err)
	return v
}

func TestNewAESVault_InvalidKey(t *testing.T) {
	_, err := NewAESVault("shortkey")
	assert.Error(t, err)

	_, err = NewAESVault("abcd")
	assert.ErrorContains(t, err, "32 bytes")

	_, err = NewAESVault(testVaultKey + "00")
	assert.Error(t, err)
}

func TestAESVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	for _, plaintext := range []string{"sk_live_9f8e7d", "", strings.Repeat("x", 4096), "clé secrète ✓"} {
		packed, err := v.Encrypt(plaintext)
		require.NoError(t, err)
		if plaintext != "" {
			assert.NotContains(t, packed, plaintext)
		}

		got, err := v.Decrypt(packed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESVault_SealLayout(t *testing.T) {
	v := newTestVault(t)

	sealed, err := v.Seal("api-key-123")
	require.NoError(t, err)
	assert.Len(t, sealed.IV, 12)
	assert.Len(t, sealed.AuthTag, 16)
	assert.Len(t, sealed.CipherText, len("api-key-123"))

	packed, err := PackSecret(sealed)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(packed)
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "iv")
	assert.Contains(t, fields, "authTag")
	assert.Contains(t, fields, "cipherText")
}

func TestAESVault_FreshIVPerCall(t *testing.T) {
	v := newTestVault(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sealed, err := v.Seal("same")
		require.NoError(t, err)
		iv := string(sealed.IV)
		require.False(t, seen[iv], "iv reused")
		seen[iv] = true
	}
}

func TestAESVault_TamperFailsClosed(t *testing.T) {
	v := newTestVault(t)

	sealed, err := v.Seal("secret-key-value")
	require.NoError(t, err)

	flip := func(b []byte, i int) []byte {
		out := append([]byte(nil), b...)
		out[i] ^= 0x01
		return out
	}

	cases := map[string]domain.SealedSecret{
		"ciphertext": {IV: sealed.IV, AuthTag: sealed.AuthTag, CipherText: flip(sealed.CipherText, 0)},
		"tag":        {IV: sealed.IV, AuthTag: flip(sealed.AuthTag, 15), CipherText: sealed.CipherText},
		"iv":         {IV: flip(sealed.IV, 3), AuthTag: sealed.AuthTag, CipherText: sealed.CipherText},
		"short tag":  {IV: sealed.IV, AuthTag: sealed.AuthTag[:8], CipherText: sealed.CipherText},
		"missing iv": {AuthTag: sealed.AuthTag, CipherText: sealed.CipherText},
	}

	for name, tampered := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := v.Open(tampered)
			assert.ErrorIs(t, err, domain.ErrIntegrity)
			assert.Empty(t, got)
		})
	}
}

func TestAESVault_WrongKey(t *testing.T) {
	v1 := newTestVault(t)
	v2, err := NewAESVault("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	packed, err := v1.Encrypt("merchant-secret")
	require.NoError(t, err)

	_, err = v2.Decrypt(packed)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestAESVault_MalformedPacked(t *testing.T) {
	v := newTestVault(t)

	for _, in := range []string{"not-base64!!!", base64.StdEncoding.EncodeToString([]byte("{not json")), ""} {
		_, err := v.Decrypt(in)
		assert.ErrorIs(t, err, domain.ErrIntegrity, in)
	}
}

func TestAESVault_ErrorDoesNotDescribeFailure(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Seal("x")
	require.NoError(t, err)
	sealed.AuthTag[0] ^= 0xff

	_, err = v.Open(sealed)
	require.Error(t, err)
	assert.Equal(t, domain.ErrIntegrity.Error(), err.Error())
}
