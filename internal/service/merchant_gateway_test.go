package service

import (
	"context"
	"errors"
	"testing"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMerchantGatewayResolver_ForMerchant_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	credRepo := mocks.NewMockCredentialRepository(ctrl)
	factory := mocks.NewMockGatewayFactory(ctrl)
	client := mocks.NewMockGatewayClient(ctrl)
	vault := newTestVault(t)

	apiEnc, err := vault.Encrypt("pk_live_1")
	require.NoError(t, err)
	secretEnc, err := vault.Encrypt("sk_live_1")
	require.NoError(t, err)

	rec := &domain.CredentialRecord{ID: 4, UserID: 9, APIKeyEncrypted: apiEnc, SecretKeyEncrypted: secretEnc, IsActive: true}
	credRepo.EXPECT().GetActiveByUser(gomock.Any(), int64(9)).Return(rec, nil)
	factory.EXPECT().NewClient(domain.GatewayCredentials{APIKey: "pk_live_1", SecretKey: "sk_live_1", TestMode: false}).Return(client)

	resolver := NewMerchantGatewayResolver(credRepo, vault, factory, zerolog.Nop())
	got, gotRec, err := resolver.ForMerchant(context.Background(), 9)
	require.NoError(t, err)
	assert.Same(t, client, got)
	assert.Same(t, rec, gotRec)
}

func TestMerchantGatewayResolver_ForMerchant_NoActiveRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	credRepo := mocks.NewMockCredentialRepository(ctrl)
	credRepo.EXPECT().GetActiveByUser(gomock.Any(), int64(9)).Return(nil, nil)

	resolver := NewMerchantGatewayResolver(credRepo, newTestVault(t), mocks.NewMockGatewayFactory(ctrl), zerolog.Nop())
	_, _, err := resolver.ForMerchant(context.Background(), 9)
	assertAppError(t, err, "CRED_001")
}

func TestMerchantGatewayResolver_ForMerchant_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	credRepo := mocks.NewMockCredentialRepository(ctrl)
	credRepo.EXPECT().GetActiveByUser(gomock.Any(), int64(9)).Return(nil, errors.New("pool closed"))

	resolver := NewMerchantGatewayResolver(credRepo, newTestVault(t), mocks.NewMockGatewayFactory(ctrl), zerolog.Nop())
	_, _, err := resolver.ForMerchant(context.Background(), 9)
	assertAppError(t, err, "SYS_001")
}

func TestMerchantGatewayResolver_ForMerchant_TamperedRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	credRepo := mocks.NewMockCredentialRepository(ctrl)
	vault := newTestVault(t)

	apiEnc, err := vault.Encrypt("pk")
	require.NoError(t, err)

	out := &syncBuffer{}
	credRepo.EXPECT().GetActiveByUser(gomock.Any(), int64(9)).Return(&domain.CredentialRecord{
		ID:                 4,
		UserID:             9,
		APIKeyEncrypted:    apiEnc,
		SecretKeyEncrypted: "bm90LWEtc2VhbGVkLXNlY3JldA==",
		IsActive:           true,
	}, nil)

	resolver := NewMerchantGatewayResolver(credRepo, vault, mocks.NewMockGatewayFactory(ctrl), zerolog.New(out))
	_, _, err = resolver.ForMerchant(context.Background(), 9)
	assertAppError(t, err, "CRED_002")
	assert.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Contains(t, out.String(), "failed integrity verification")
	assert.NotContains(t, out.String(), "pk")
}
