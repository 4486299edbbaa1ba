package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const reconcileBatchSize = 100

// SettlementConfig holds the static knobs of checkout and settlement.
type SettlementConfig struct {
	CommissionRate  decimal.Decimal
	Currency        string
	CallbackBaseURL string
	WebhookURL      string
	GatewayTimeout  time.Duration
}

// SettlementServiceImpl implements ports.SettlementService and ports.Reconciler.
type SettlementServiceImpl struct {
	items      ports.ItemRepository
	txRepo     ports.TransactionRepository
	purchases  ports.PurchaseRepository
	settings   ports.SettingsRepository
	transactor ports.DBTransactor
	resolver   ports.MerchantGatewayResolver
	verifier   ports.WebhookVerifier
	recorder   ports.SettlementRecorder
	auditSvc   ports.AuditService
	cfg        SettlementConfig
	log        zerolog.Logger
	now        func() time.Time
	batchSize  int
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	items ports.ItemRepository,
	txRepo ports.TransactionRepository,
	purchases ports.PurchaseRepository,
	settings ports.SettingsRepository,
	transactor ports.DBTransactor,
	resolver ports.MerchantGatewayResolver,
	verifier ports.WebhookVerifier,
	recorder ports.SettlementRecorder,
	auditSvc ports.AuditService,
	cfg SettlementConfig,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		items:      items,
		txRepo:     txRepo,
		purchases:  purchases,
		settings:   settings,
		transactor: transactor,
		resolver:   resolver,
		verifier:   verifier,
		recorder:   recorder,
		auditSvc:   auditSvc,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		batchSize:  reconcileBatchSize,
	}
}

// Checkout prices an item, records a pending transaction and asks the
// vendor's processor for a payment intent. The pending row is committed
// before the processor is called, so a crash mid-call leaves a row the
// reconciler can find.
func (s *SettlementServiceImpl) Checkout(ctx context.Context, buyer domain.Principal, itemID int64) (*ports.CheckoutResult, error) {
	if itemID <= 0 {
		return nil, apperror.Validation("itemId is required")
	}

	item, err := s.items.GetPurchasable(ctx, itemID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get item: %w", err))
	}
	if item == nil {
		return nil, apperror.ErrNotFound("Item")
	}
	if item.VendorID == buyer.UserID {
		return nil, apperror.Validation("You cannot purchase your own book")
	}

	client, _, err := s.resolver.ForMerchant(ctx, item.VendorID)
	if err != nil {
		s.recorder.CheckoutResult("no_credentials")
		return nil, err
	}

	rate, err := s.commissionRate(ctx)
	if err != nil {
		return nil, err
	}

	trx, err := domain.NewPendingTransaction(buyer.UserID, item, rate, s.cfg.Currency)
	if err != nil {
		if errors.Is(err, domain.ErrNonPositiveAmount) {
			return nil, apperror.ErrInvalidAmount()
		}
		return nil, apperror.InternalError(err)
	}

	if err := s.createPending(ctx, trx); err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	start := time.Now()
	intent, gwErr := client.CreatePayment(gwCtx, domain.PaymentRequest{
		Amount:      trx.Amount,
		Currency:    trx.Currency,
		Description: fmt.Sprintf("EBOOKDZ - %s", item.Title),
		Reference:   trx.Reference,
		CallbackURL: s.callbackURL(trx.Reference),
		WebhookURL:  s.cfg.WebhookURL,
	})
	s.recorder.GatewayCall("create_payment", gwErr, time.Since(start))

	// The buyer may have gone away; the outcome must still be recorded.
	finalizeCtx := context.WithoutCancel(ctx)

	if gwErr != nil {
		reason := failureReason(gwErr)
		if _, err := s.failPending(finalizeCtx, trx.ID, &reason); err != nil {
			s.log.Error().Err(err).Str("reference", trx.Reference.String()).Msg("failed to mark transaction failed")
		}
		s.recorder.CheckoutResult("gateway_error")
		s.log.Warn().
			Err(gwErr).
			Str("reference", trx.Reference.String()).
			Int64("vendor_id", trx.VendorID).
			Msg("payment intent creation failed")
		return nil, gatewayAppError(gwErr)
	}

	if err := s.attachIntent(finalizeCtx, trx.ID, *intent); err != nil {
		return nil, err
	}

	s.recorder.CheckoutResult("created")
	s.log.Info().
		Str("reference", trx.Reference.String()).
		Int64("buyer_id", trx.BuyerID).
		Int64("item_id", trx.ItemID).
		Str("amount", trx.Amount.StringFixed(domain.MoneyScale)).
		Msg("checkout created")

	return &ports.CheckoutResult{
		Reference:  trx.Reference,
		PaymentURL: intent.PaymentURL,
	}, nil
}

// HandleWebhook authenticates a processor notification and applies it.
// The signature is checked against the raw bytes before anything is parsed.
func (s *SettlementServiceImpl) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (domain.SettlementOutcome, error) {
	if !s.verifier.Verify(rawBody, signature) {
		s.recorder.WebhookResult("rejected")
		s.log.Warn().Int("body_size", len(rawBody)).Msg("webhook signature rejected")
		return "", apperror.ErrInvalidSignature()
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		s.recorder.WebhookResult("malformed")
		return "", apperror.ErrMalformedPayload()
	}
	if strings.TrimSpace(event.Reference) == "" {
		s.recorder.WebhookResult("malformed")
		return "", apperror.ErrMalformedPayload()
	}

	reference, err := uuid.Parse(event.Reference)
	if err != nil {
		s.recorder.WebhookResult("unknown_reference")
		return "", apperror.ErrNotFound("Transaction")
	}

	next, ok := domain.ClassifyProcessorStatus(event.Status)
	if !ok {
		trx, err := s.txRepo.GetByReference(ctx, reference)
		if err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
		}
		if trx == nil {
			s.recorder.WebhookResult("unknown_reference")
			return "", apperror.ErrNotFound("Transaction")
		}
		s.recorder.WebhookResult(string(domain.SettlementIgnored))
		s.log.Info().
			Str("reference", reference.String()).
			Str("status", event.Status).
			Msg("webhook status ignored")
		return domain.SettlementIgnored, nil
	}

	var reason *string
	if next == domain.TransactionStatusFailed {
		r := fmt.Sprintf("processor reported status %q", event.Status)
		reason = &r
	}

	outcome, err := s.settle(ctx, reference, next, event.TransactionID, reason)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "NF_001" {
			s.recorder.WebhookResult("unknown_reference")
		}
		return "", err
	}

	s.recorder.WebhookResult(string(outcome))
	s.log.Info().
		Str("reference", reference.String()).
		Str("status", string(next)).
		Str("outcome", string(outcome)).
		Msg("webhook processed")

	return outcome, nil
}

// GetTransaction returns a transaction to one of its parties or an admin.
func (s *SettlementServiceImpl) GetTransaction(ctx context.Context, viewer domain.Principal, reference uuid.UUID) (*ports.TransactionView, error) {
	trx, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if trx == nil || !canView(viewer, trx) {
		return nil, apperror.ErrNotFound("Transaction")
	}
	return newTransactionView(viewer, trx), nil
}

// RefreshStatus polls the processor for a pending transaction and settles it
// through the same path as a webhook would.
func (s *SettlementServiceImpl) RefreshStatus(ctx context.Context, viewer domain.Principal, reference uuid.UUID) (*ports.TransactionView, error) {
	trx, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if trx == nil || !canView(viewer, trx) {
		return nil, apperror.ErrNotFound("Transaction")
	}
	if trx.IsTerminal() || trx.GatewayTransactionID == nil {
		return newTransactionView(viewer, trx), nil
	}

	outcome, err := s.pollAndSettle(ctx, trx)
	if err != nil {
		return nil, err
	}
	if outcome != domain.SettlementApplied {
		return newTransactionView(viewer, trx), nil
	}

	updated, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reload transaction: %w", err))
	}
	if updated == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}
	return newTransactionView(viewer, updated), nil
}

// Library lists the purchases granted to userID.
func (s *SettlementServiceImpl) Library(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list purchases: %w", err))
	}
	if purchases == nil {
		purchases = []domain.Purchase{}
	}
	return purchases, nil
}

// ReconcilePending polls the processor for pending rows older than olderThan.
// Rows that never received a payment intent are failed once they are older
// than abandonBefore.
//
// One pass walks every stale pending row page by page, so rows the processor
// still reports as open do not hide newer ones.
func (s *SettlementServiceImpl) ReconcilePending(ctx context.Context, olderThan, abandonBefore time.Time) (ports.ReconcileReport, error) {
	var (
		report ports.ReconcileReport
		cursor ports.PendingCursor
	)
	for {
		page, err := s.txRepo.ListStalePending(ctx, olderThan, cursor, s.batchSize)
		if err != nil {
			return report, apperror.ErrDatabaseError(fmt.Errorf("list stale pending: %w", err))
		}
		for i := range page {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.reconcileOne(ctx, &page[i], abandonBefore, &report)
		}
		if len(page) < s.batchSize {
			return report, nil
		}
		last := page[len(page)-1]
		cursor = ports.PendingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

func (s *SettlementServiceImpl) reconcileOne(ctx context.Context, trx *domain.Transaction, abandonBefore time.Time, report *ports.ReconcileReport) {
	report.Scanned++

	if trx.GatewayTransactionID == nil {
		if !trx.CreatedAt.Before(abandonBefore) {
			return
		}
		reason := "payment intent was never created"
		changed, err := s.failPending(ctx, trx.ID, &reason)
		if err != nil {
			report.Errors++
			s.log.Warn().Err(err).Str("reference", trx.Reference.String()).Msg("failed to abandon transaction")
			return
		}
		if changed {
			report.Abandoned++
			s.auditSvc.Log(ctx, &domain.AuditLog{
				Action:       domain.AuditActionReconcileAbandoned,
				ResourceType: "transaction",
				ResourceID:   trx.Reference.String(),
				Details:      `{"reason":"payment intent was never created"}`,
			})
		}
		return
	}

	outcome, err := s.pollAndSettle(ctx, trx)
	if err != nil {
		report.Errors++
		s.log.Warn().Err(err).Str("reference", trx.Reference.String()).Msg("reconcile poll failed")
		return
	}
	if outcome == domain.SettlementApplied {
		report.Settled++
	}
}

// settle applies a terminal status under a row lock. Completion and the
// library grant commit together or not at all.
func (s *SettlementServiceImpl) settle(
	ctx context.Context,
	reference uuid.UUID,
	next domain.TransactionStatus,
	gatewayTxID string,
	reason *string,
) (domain.SettlementOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	trx, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("lock transaction: %w", err))
	}
	if trx == nil {
		return "", apperror.ErrNotFound("Transaction")
	}
	if !trx.CanTransitionTo(next) {
		return domain.SettlementAlreadyTerminal, nil
	}

	processedAt := s.now().UTC()
	var changed bool
	switch next {
	case domain.TransactionStatusCompleted:
		gid := trx.GatewayTransactionID
		if gatewayTxID != "" {
			gid = &gatewayTxID
		}
		changed, err = s.txRepo.MarkCompleted(ctx, dbTx, trx.ID, gid, processedAt)
		if err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("mark completed: %w", err))
		}
		if changed {
			grant := &domain.Purchase{
				UserID:        trx.BuyerID,
				ItemID:        trx.ItemID,
				TransactionID: trx.ID,
				PurchasedAt:   processedAt,
			}
			if err := s.purchases.Upsert(ctx, dbTx, grant); err != nil {
				return "", apperror.ErrDatabaseError(fmt.Errorf("grant purchase: %w", err))
			}
		}
	case domain.TransactionStatusFailed:
		changed, err = s.txRepo.MarkFailed(ctx, dbTx, trx.ID, reason, processedAt)
		if err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("mark failed: %w", err))
		}
	}
	if !changed {
		return domain.SettlementAlreadyTerminal, nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return domain.SettlementApplied, nil
}

func (s *SettlementServiceImpl) pollAndSettle(ctx context.Context, trx *domain.Transaction) (domain.SettlementOutcome, error) {
	client, _, err := s.resolver.ForMerchant(ctx, trx.VendorID)
	if err != nil {
		return "", err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	start := time.Now()
	status, err := client.GetPaymentStatus(gwCtx, *trx.GatewayTransactionID)
	s.recorder.GatewayCall("get_payment_status", err, time.Since(start))
	if err != nil {
		return "", gatewayAppError(err)
	}

	next, ok := domain.ClassifyProcessorStatus(status.Status)
	if !ok {
		return domain.SettlementIgnored, nil
	}

	var reason *string
	if next == domain.TransactionStatusFailed {
		r := fmt.Sprintf("processor reported status %q", status.Status)
		reason = &r
	}
	return s.settle(ctx, trx.Reference, next, status.PaymentID, reason)
}

func (s *SettlementServiceImpl) createPending(ctx context.Context, trx *domain.Transaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, trx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *SettlementServiceImpl) attachIntent(ctx context.Context, id int64, intent domain.PaymentIntent) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.AttachPaymentIntent(ctx, dbTx, id, intent); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("attach payment intent: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *SettlementServiceImpl) failPending(ctx context.Context, id int64, reason *string) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	changed, err := s.txRepo.MarkFailed(ctx, dbTx, id, reason, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return changed, nil
}

// commissionRate prefers the stored system setting over the configured default.
func (s *SettlementServiceImpl) commissionRate(ctx context.Context) (decimal.Decimal, error) {
	rate, ok, err := s.settings.CommissionRate(ctx)
	if err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("read commission rate: %w", err))
	}
	if !ok {
		return s.cfg.CommissionRate, nil
	}
	return rate, nil
}

func (s *SettlementServiceImpl) callbackURL(reference uuid.UUID) string {
	return fmt.Sprintf("%s/payment/callback?ref=%s", strings.TrimRight(s.cfg.CallbackBaseURL, "/"), reference)
}

func canView(viewer domain.Principal, trx *domain.Transaction) bool {
	return viewer.IsAdmin() || trx.IsParty(viewer.UserID)
}

// newTransactionView exposes the failure payload to the vendor and admins only.
func newTransactionView(viewer domain.Principal, trx *domain.Transaction) *ports.TransactionView {
	view := &ports.TransactionView{Transaction: trx}
	if viewer.IsAdmin() || trx.VendorID == viewer.UserID {
		view.FailureReason = trx.FailureReason
	}
	return view
}

func failureReason(err error) string {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Reason()
	}
	return err.Error()
}

// gatewayAppError maps a processor failure to its client-facing error.
func gatewayAppError(err error) error {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && gwErr.Timeout() {
		return apperror.ErrGatewayTimeout(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrGatewayTimeout(err)
	}
	return apperror.ErrGatewayFailure(err)
}
