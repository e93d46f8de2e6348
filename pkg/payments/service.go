package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kudupay/kuduq-backend/pkg/obs"
	"github.com/kudupay/kuduq-backend/pkg/rapyd"
)

// Provider is the slice of the payment provider the orchestrator needs.
type Provider interface {
	GetUser(ctx context.Context, userID string) (rapyd.User, error)
	GetBalance(ctx context.Context, userID string) (rapyd.Balance, error)
	GetRecipient(ctx context.Context, paymentIdentifier string) (map[string]any, error)
	Mint(ctx context.Context, req rapyd.MintRequest) (map[string]any, error)
	Transfer(ctx context.Context, fromUserID, toPaymentIdentifier string, amount decimal.Decimal, reference string) (rapyd.TransferResult, error)
}

type Result struct {
	OK      bool
	Message string
}

type PayRequest struct {
	MerchantID     string
	StudentID      string
	AmountCents    int64
	IdempotencyKey string
}

type SponsorRequest struct {
	SponsorID      string
	StudentID      string
	AmountCents    int64
	IdempotencyKey string
}

// Service orchestrates transfers against the provider. It holds no local
// state: parties are fetched fresh per request and the provider is the
// system of record for every transfer. Idempotency is delegated to the
// provider through the transaction reference.
type Service struct {
	provider Provider

	transfers    metric.Int64Counter
	mintFailures metric.Int64Counter
}

func NewService(provider Provider) *Service {
	meter := otel.Meter("github.com/kudupay/kuduq-backend/payments")
	transfers, _ := meter.Int64Counter("transfers_total",
		metric.WithDescription("Transfer attempts by outcome"))
	mintFailures, _ := meter.Int64Counter("mint_failures_total",
		metric.WithDescription("Mint requests that failed at the provider"))

	return &Service{
		provider:     provider,
		transfers:    transfers,
		mintFailures: mintFailures,
	}
}

// amountFromCents derives the decimal amount the provider expects. Zero and
// missing amounts pass through untouched: the provider is the final arbiter
// of acceptance.
func amountFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// transferSucceeded is the provider's sole success signal: a free-text
// message containing "successful". Not an HTTP status. Do not tighten this.
func transferSucceeded(message string) bool {
	return strings.Contains(strings.ToLower(message), "successful")
}

// CanPay reports whether a party's ZAR balance covers the requested amount.
func (s *Service) CanPay(ctx context.Context, userID string, amountCents int64) Result {
	if userID == "" {
		return Result{OK: false, Message: "User not found"}
	}

	balance, err := s.provider.GetBalance(ctx, userID)
	if err != nil {
		obs.Error(ctx, "balance lookup failed", err, "err_kind", obs.ErrKindProvider)
		return Result{OK: false, Message: "Balance unavailable"}
	}

	if balance.ZAR.LessThan(amountFromCents(amountCents)) {
		return Result{OK: false, Message: "Insufficient funds"}
	}
	return Result{OK: true}
}

// PayUser moves funds from a student to a merchant's payment identifier.
func (s *Service) PayUser(ctx context.Context, req PayRequest) Result {
	if req.MerchantID == "" || req.StudentID == "" {
		obs.Warn(ctx, "pay request missing merchantId or studentId")
		return Result{OK: false, Message: "Transfer failed, invalid request"}
	}

	ok := s.executeTransfer(ctx, transferSpec{
		debtorID:    req.StudentID,
		creditorID:  req.MerchantID,
		amountCents: req.AmountCents,
		reference:   "Idem_" + req.IdempotencyKey,
	})
	if !ok {
		return Result{OK: false, Message: "Transfer failed"}
	}
	return Result{OK: true, Message: "Transfer successful"}
}

// SponsorUser moves funds from a sponsor to a student's payment identifier.
// Identical control flow to PayUser with the parties swapped.
func (s *Service) SponsorUser(ctx context.Context, req SponsorRequest) Result {
	if req.SponsorID == "" || req.StudentID == "" {
		obs.Warn(ctx, "sponsor request missing sponsorId or studentId")
		return Result{OK: false, Message: "Sponsor transfer failed, invalid request"}
	}

	ok := s.executeTransfer(ctx, transferSpec{
		debtorID:      req.SponsorID,
		creditorID:    req.StudentID,
		creditStudent: true,
		amountCents:   req.AmountCents,
		reference:     "Idem_" + req.IdempotencyKey,
	})
	if !ok {
		return Result{OK: false, Message: "Sponsor transfer failed"}
	}
	return Result{OK: true, Message: "Sponsor user transfer successful"}
}

// FundUser mints stablecoin to a sponsor's payment identifier after an EFT
// deposit. The response message deliberately does not reflect the mint
// outcome; a failed mint is logged and counted for operators to reconcile.
func (s *Service) FundUser(ctx context.Context, sponsorID string, amountCents int64) Result {
	if sponsorID == "" {
		return Result{Message: "User cannot pay"}
	}

	amount := amountFromCents(amountCents)
	sponsor, err := s.provider.GetUser(ctx, sponsorID)
	if err != nil {
		obs.Error(ctx, "sponsor not found for funding", err,
			"err_kind", obs.ErrKindProvider, "sponsor_id", sponsorID)
		return Result{Message: "User can pay"}
	}

	_, err = s.provider.Mint(ctx, rapyd.MintRequest{
		TransactionAmount:    amount,
		TransactionRecipient: sponsor.PaymentIdentifier,
		TransactionNotes:     fmt.Sprintf("EFT deposit %s to %s", amount, sponsorID),
	})
	if err != nil {
		obs.Error(ctx, "mint request failed", err,
			"err_kind", obs.ErrKindProvider, "sponsor_id", sponsorID)
		s.mintFailures.Add(ctx, 1)
	} else {
		obs.Info(ctx, "mint request successful", "sponsor_id", sponsorID)
	}

	return Result{Message: "User can pay"}
}

type transferSpec struct {
	debtorID   string
	creditorID string
	// creditStudent credits the creditor's own payment identifier
	// (sponsor->student); otherwise funds go to the creditor as a merchant.
	creditStudent bool
	amountCents   int64
	reference     string
}

func (s *Service) executeTransfer(ctx context.Context, spec transferSpec) bool {
	debtor, err := s.provider.GetUser(ctx, spec.debtorID)
	if err != nil {
		obs.Error(ctx, "debtor lookup failed", err, "err_kind", obs.ErrKindProvider)
		s.recordTransfer(ctx, "party_unresolved")
		return false
	}
	creditor, err := s.provider.GetUser(ctx, spec.creditorID)
	if err != nil {
		obs.Error(ctx, "creditor lookup failed", err, "err_kind", obs.ErrKindProvider)
		s.recordTransfer(ctx, "party_unresolved")
		return false
	}

	// Recipient resolution validates the student's payment identifier as a
	// reachable target before committing the transfer.
	var student rapyd.User
	if spec.creditStudent {
		student = creditor
	} else {
		student = debtor
	}
	if _, err := s.provider.GetRecipient(ctx, student.PaymentIdentifier); err != nil {
		obs.Error(ctx, "recipient unresolvable", err, "err_kind", obs.ErrKindProvider)
		s.recordTransfer(ctx, "recipient_unresolved")
		return false
	}

	result, err := s.provider.Transfer(ctx, debtor.ID, creditor.PaymentIdentifier,
		amountFromCents(spec.amountCents), spec.reference)
	if err != nil {
		obs.Error(ctx, "transfer request failed", err, "err_kind", obs.ErrKindProvider)
		s.recordTransfer(ctx, "provider_error")
		return false
	}
	if !transferSucceeded(result.Message) {
		obs.Warn(ctx, "provider rejected transfer", "provider_message", result.Message)
		s.recordTransfer(ctx, "rejected")
		return false
	}

	obs.Info(ctx, "transfer successful", "reference", spec.reference)
	s.recordTransfer(ctx, "success")
	return true
}

func (s *Service) recordTransfer(ctx context.Context, outcome string) {
	s.transfers.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
