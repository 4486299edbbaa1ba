package service

import (
	"context"
	"strings"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"

	"github.com/rs/zerolog"
)

type merchantService struct {
	credRepo ports.CredentialRepository
	vault    ports.Vault
	resolver ports.MerchantGatewayResolver
	recorder ports.SettlementRecorder
	log      zerolog.Logger
}

// NewMerchantService creates the merchant payment-configuration service.
func NewMerchantService(
	credRepo ports.CredentialRepository,
	vault ports.Vault,
	resolver ports.MerchantGatewayResolver,
	recorder ports.SettlementRecorder,
	log zerolog.Logger,
) ports.CredentialService {
	return &merchantService{
		credRepo: credRepo,
		vault:    vault,
		resolver: resolver,
		recorder: recorder,
		log:      log,
	}
}

func (s *merchantService) GetSummary(ctx context.Context, userID int64) (domain.CredentialSummary, error) {
	rec, err := s.credRepo.GetByUser(ctx, userID)
	if err != nil {
		return domain.CredentialSummary{}, apperror.InternalError(err)
	}
	return rec.Summary(), nil
}

// Save seals both secrets independently and upserts the merchant's single
// record. Concurrent saves resolve last-writer-wins.
func (s *merchantService) Save(ctx context.Context, userID int64, in domain.CredentialInput) (domain.CredentialSummary, error) {
	apiKey := strings.TrimSpace(in.APIKey)
	secretKey := strings.TrimSpace(in.SecretKey)
	if apiKey == "" || secretKey == "" {
		return domain.CredentialSummary{}, apperror.Validation("apiKey and secretKey are required")
	}

	apiEnc, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return domain.CredentialSummary{}, apperror.ErrEncryptionFailure(err)
	}
	secretEnc, err := s.vault.Encrypt(secretKey)
	if err != nil {
		return domain.CredentialSummary{}, apperror.ErrEncryptionFailure(err)
	}

	rec := &domain.CredentialRecord{
		UserID:             userID,
		APIKeyEncrypted:    apiEnc,
		SecretKeyEncrypted: secretEnc,
		MerchantID:         in.MerchantID,
		WebhookURL:         in.WebhookURL,
		IsTestMode:         in.IsTestMode,
		IsActive:           true,
	}
	if err := s.credRepo.Upsert(ctx, rec); err != nil {
		return domain.CredentialSummary{}, apperror.InternalError(err)
	}

	s.log.Info().
		Int64("user_id", userID).
		Bool("test_mode", in.IsTestMode).
		Msg("payment configuration saved")

	return rec.Summary(), nil
}

// TestConnection pings the processor with the stored credentials and stamps
// the outcome on the record. A failed ping is reported as a gateway error.
func (s *merchantService) TestConnection(ctx context.Context, userID int64) (domain.CredentialSummary, error) {
	client, rec, err := s.resolver.ForMerchant(ctx, userID)
	if err != nil {
		return domain.CredentialSummary{}, err
	}

	start := time.Now()
	pingErr := client.TestConnection(ctx)
	s.recorder.GatewayCall("ping", pingErr, time.Since(start))

	status := domain.CredentialTestSuccess
	if pingErr != nil {
		status = domain.CredentialTestFailed
	}

	testedAt := time.Now().UTC()
	if err := s.credRepo.RecordTestResult(context.WithoutCancel(ctx), userID, status, testedAt); err != nil {
		return domain.CredentialSummary{}, apperror.InternalError(err)
	}
	rec.LastTestedAt = &testedAt
	rec.TestStatus = &status

	if pingErr != nil {
		s.log.Warn().Err(pingErr).Int64("user_id", userID).Msg("payment gateway connection test failed")
		return rec.Summary(), gatewayAppError(pingErr)
	}
	return rec.Summary(), nil
}

func (s *merchantService) Deactivate(ctx context.Context, userID int64) error {
	rec, err := s.credRepo.GetByUser(ctx, userID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if rec == nil {
		return apperror.ErrNotFound("Payment configuration")
	}
	if err := s.credRepo.Deactivate(ctx, userID); err != nil {
		return apperror.InternalError(err)
	}
	s.log.Info().Int64("user_id", userID).Msg("payment configuration deactivated")
	return nil
}
