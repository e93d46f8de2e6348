package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kudupay/kuduq-backend/pkg/events"
	"github.com/kudupay/kuduq-backend/pkg/obs"
	"github.com/kudupay/kuduq-backend/pkg/rapyd"
)

// Mailer is the outbound email capability the dispatcher depends on.
type Mailer interface {
	SendWelcome(ctx context.Context, to, userName, userRole string) bool
	SendMagicLink(ctx context.Context, to, magicToken, linkURL string) bool
}

// Provisioner is the slice of the payment provider used for account setup.
type Provisioner interface {
	CreateUser(ctx context.Context, req rapyd.CreateUserRequest) (rapyd.User, error)
	ActivatePay(ctx context.Context, userID string) error
}

// ActivationStore persists the pay-activation flag for a user id.
type ActivationStore interface {
	SetActivated(ctx context.Context, userID string, activated bool) error
}

// Dispatcher routes typed envelopes to their side effects. Sub-steps of one
// event are isolated from each other: a failed welcome email never blocks
// provider provisioning, and neither is rolled back when the other fails.
// Partial completions are reconciled out-of-band by operators.
type Dispatcher struct {
	mailer      Mailer
	provisioner Provisioner
	activations ActivationStore

	handled metric.Int64Counter
}

func New(mailer Mailer, provisioner Provisioner, activations ActivationStore) *Dispatcher {
	meter := otel.Meter("github.com/kudupay/kuduq-backend/dispatch")
	handled, _ := meter.Int64Counter("events_handled_total",
		metric.WithDescription("Queue events routed to handlers, by type"))

	return &Dispatcher{
		mailer:      mailer,
		provisioner: provisioner,
		activations: activations,
		handled:     handled,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, envelope events.Envelope) error {
	ctx = obs.WithEventType(ctx, string(envelope.Kind()))
	d.handled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", string(envelope.Kind()))))

	switch e := envelope.(type) {
	case events.UserRegistered:
		d.handleUserRegistered(ctx, e)
	case events.StudentMagicLinkRequested:
		d.handleMagicLinkRequested(ctx, e)
	default:
		// Unreachable while the registry's closed set matches this switch.
		obs.Warn(ctx, "unhandled event type", "event_type", string(envelope.Kind()))
	}
	return nil
}

func (d *Dispatcher) handleUserRegistered(ctx context.Context, e events.UserRegistered) {
	ctx = obs.WithUserID(ctx, e.User.ID)

	if d.mailer.SendWelcome(ctx, e.User.Email, e.User.DisplayName(), string(e.User.Role)) {
		obs.Info(ctx, "sent welcome email")
	} else {
		obs.Error(ctx, "failed to send welcome email", nil, "err_kind", obs.ErrKindSMTP)
	}

	if e.User.Email == "" {
		return
	}

	_, err := d.provisioner.CreateUser(ctx, rapyd.CreateUserRequest{
		ID:        e.User.ID,
		Email:     e.User.Email,
		FirstName: e.User.FirstName,
		LastName:  e.User.LastName,
	})
	if err != nil {
		obs.Error(ctx, "failed to create provider account", err, "err_kind", obs.ErrKindProvider)
	}

	if err := d.provisioner.ActivatePay(ctx, e.User.ID); err != nil {
		obs.Error(ctx, "failed to activate pay capability", err, "err_kind", obs.ErrKindProvider)
		return
	}
	obs.Info(ctx, "provider account provisioned and activated")

	if err := d.activations.SetActivated(ctx, e.User.ID, true); err != nil {
		obs.Error(ctx, "failed to persist activation flag", err, "err_kind", obs.ErrKindStore)
	}
}

func (d *Dispatcher) handleMagicLinkRequested(ctx context.Context, e events.StudentMagicLinkRequested) {
	if d.mailer.SendMagicLink(ctx, e.Email, e.MagicToken, e.LinkURL) {
		obs.Info(ctx, "sent magic link email")
	} else {
		obs.Error(ctx, "failed to send magic link email", nil, "err_kind", obs.ErrKindSMTP)
	}
}
