package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ebook-marketplace/config"
	"ebook-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVaultKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testDeps(out *bytes.Buffer, vaultKey string) keygenDeps {
	return keygenDeps{
		random:  bytes.NewReader(bytes.Repeat([]byte{0xab}, 256)),
		loadEnv: func() error { return errors.New("no .env") },
		loadCfg: func(string) (*config.Config, error) {
			return &config.Config{Vault: config.VaultConfig{Key: vaultKey}}, nil
		},
		out: out,
	}
}

func TestRunKeygen_GeneratesAllSecrets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runKeygen(nil, testDeps(&out, "")))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "EBM_VAULT_KEY="+strings.Repeat("ab", 32), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "EBM_JWT_SECRET="))
	assert.Len(t, strings.TrimPrefix(lines[1], "EBM_JWT_SECRET="), 96)
	assert.True(t, strings.HasPrefix(lines[2], "EBM_GATEWAY_WEBHOOK_SECRET="))
}

func TestRunKeygen_GeneratedVaultKeyIsUsable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runKeygen(nil, testDeps(&out, "")))

	key := strings.TrimPrefix(strings.Split(out.String(), "\n")[0], "EBM_VAULT_KEY=")
	_, err := service.NewAESVault(key)
	assert.NoError(t, err)
}

func TestRunKeygen_ShortRandomSource(t *testing.T) {
	deps := testDeps(&bytes.Buffer{}, "")
	deps.random = bytes.NewReader([]byte{1, 2, 3})
	assert.Error(t, runKeygen(nil, deps))
}

func TestRunKeygen_Seal(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runKeygen([]string{"-seal", "sk_live_secret"}, testDeps(&out, testVaultKey)))

	vault, err := service.NewAESVault(testVaultKey)
	require.NoError(t, err)
	plain, err := vault.Decrypt(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "sk_live_secret", plain)
}

func TestRunKeygen_SealWithoutKey(t *testing.T) {
	err := runKeygen([]string{"-seal", "x"}, testDeps(&bytes.Buffer{}, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EBM_VAULT_KEY")
}

func TestRunKeygen_UnknownFlag(t *testing.T) {
	assert.Error(t, runKeygen([]string{"-nope"}, testDeps(&bytes.Buffer{}, "")))
}
