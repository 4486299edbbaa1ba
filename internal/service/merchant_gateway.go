package service

import (
	"context"
	"fmt"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"

	"github.com/rs/zerolog"
)

type merchantGatewayResolver struct {
	credRepo ports.CredentialRepository
	vault    ports.Vault
	factory  ports.GatewayFactory
	log      zerolog.Logger
}

// NewMerchantGatewayResolver builds per-request gateway clients from a
// merchant's active credential record. No client is cached between calls.
func NewMerchantGatewayResolver(
	credRepo ports.CredentialRepository,
	vault ports.Vault,
	factory ports.GatewayFactory,
	log zerolog.Logger,
) ports.MerchantGatewayResolver {
	return &merchantGatewayResolver{
		credRepo: credRepo,
		vault:    vault,
		factory:  factory,
		log:      log,
	}
}

func (r *merchantGatewayResolver) ForMerchant(ctx context.Context, merchantID int64) (ports.GatewayClient, *domain.CredentialRecord, error) {
	rec, err := r.credRepo.GetActiveByUser(ctx, merchantID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	if rec == nil {
		return nil, nil, apperror.ErrCredentialsMissing()
	}

	creds, err := r.open(rec)
	if err != nil {
		// Security event: stored material did not verify under the current key.
		r.log.Error().
			Int64("merchant_id", merchantID).
			Int64("credential_id", rec.ID).
			Msg("credential record failed integrity verification")
		return nil, nil, apperror.ErrCredentialsInvalid(err)
	}

	return r.factory.NewClient(creds), rec, nil
}

func (r *merchantGatewayResolver) open(rec *domain.CredentialRecord) (domain.GatewayCredentials, error) {
	apiKey, err := r.vault.Decrypt(rec.APIKeyEncrypted)
	if err != nil {
		return domain.GatewayCredentials{}, fmt.Errorf("opening api key: %w", err)
	}
	secretKey, err := r.vault.Decrypt(rec.SecretKeyEncrypted)
	if err != nil {
		return domain.GatewayCredentials{}, fmt.Errorf("opening secret key: %w", err)
	}
	return domain.GatewayCredentials{
		APIKey:    apiKey,
		SecretKey: secretKey,
		TestMode:  rec.IsTestMode,
	}, nil
}
