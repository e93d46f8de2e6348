package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/kudupay/kuduq-backend/pkg/obs"
)

const defaultFrontendURL = "http://localhost:5173/for-students/login"

type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	Secure   bool
	From     string
	// FrontendURL is the base for constructed magic-link URLs when the
	// event carries no explicit link.
	FrontendURL string
}

// Mailer sends the account-lifecycle emails. It is stateless aside from
// configuration and safe to share across invocations; a fresh SMTP
// connection is dialed per send.
type Mailer struct {
	cfg Config
}

func New(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		if cfg.Username != "" {
			cfg.From = cfg.Username
		} else {
			cfg.From = "noreply@kudupay.com"
		}
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = defaultFrontendURL
	}
	return &Mailer{cfg: cfg}
}

// Send delivers one email with a plain-text body and an HTML alternative.
// Misconfiguration and transport failures are logged and reported as false;
// the caller decides whether that blocks anything.
func (m *Mailer) Send(ctx context.Context, to, subject, text, html string) bool {
	if m.cfg.Server == "" {
		obs.Error(ctx, "SMTP server is not configured; skipping email send", nil, "err_kind", obs.ErrKindSMTP)
		return false
	}
	if to == "" {
		obs.Error(ctx, "no recipient provided; skipping email", nil, "err_kind", obs.ErrKindSMTP)
		return false
	}
	if subject == "" {
		obs.Error(ctx, "missing subject for email; skipping", nil, "err_kind", obs.ErrKindSMTP)
		return false
	}
	if text == "" && html == "" {
		obs.Error(ctx, "email requires text or html content; skipping", nil, "err_kind", obs.ErrKindSMTP)
		return false
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		obs.Error(ctx, "invalid from address", err, "err_kind", obs.ErrKindSMTP)
		return false
	}
	if err := msg.To(to); err != nil {
		obs.Error(ctx, "invalid recipient address", err, "err_kind", obs.ErrKindSMTP)
		return false
	}
	msg.Subject(subject)
	if text != "" {
		msg.SetBodyString(mail.TypeTextPlain, text)
		if html != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, html)
		}
	} else {
		msg.SetBodyString(mail.TypeTextHTML, html)
	}

	client, err := m.newClient()
	if err != nil {
		obs.Error(ctx, "failed to build SMTP client", err, "err_kind", obs.ErrKindSMTP)
		return false
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		obs.Error(ctx, "failed to send email via SMTP", err, "err_kind", obs.ErrKindSMTP)
		return false
	}

	obs.Info(ctx, "email sent", "to", to, "subject", subject)
	return true
}

func (m *Mailer) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		// Port 587 servers commonly upgrade via STARTTLS; fall back to
		// plaintext only when the server offers no TLS at all.
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Server, opts...)
}

// SendWelcome greets a newly registered user. The name is optional.
func (m *Mailer) SendWelcome(ctx context.Context, to, userName, userRole string) bool {
	subject := "Welcome to KuduPay!"

	greetingName := ""
	if userName != "" {
		greetingName = ", " + userName
	}
	text := fmt.Sprintf(
		"Welcome to KuduPay%s!\n\n"+
			"Thank you for joining our platform. We're excited to have you on board.\n\n"+
			"If you have any questions, feel free to reach out to our support team.\n\n"+
			"Best regards,\nThe KuduPay Team",
		greetingName,
	)

	htmlName := ""
	if userName != "" {
		htmlName = fmt.Sprintf(", <strong>%s</strong>", userName)
	}
	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #333;">Welcome to KuduPay!</h1>
  <p>Welcome to KuduPay%s!</p>
  <p>Thank you for joining our platform. We're excited to have you on board.</p>
  <p>If you have any questions, feel free to reach out to our support team.</p>
  <p>Best regards,<br>The KuduPay Team</p>
</div>`, htmlName)

	return m.Send(ctx, to, subject, text, html)
}

// SendMagicLink mails a student their sign-in link. An explicit link from
// the event wins; otherwise one is built from the configured frontend base.
func (m *Mailer) SendMagicLink(ctx context.Context, to, magicToken, linkURL string) bool {
	verifyLink := linkURL
	if verifyLink == "" {
		verifyLink = m.buildVerifyLink(magicToken)
	}

	subject := "Your Secure Login Link - KuduPay"
	text := fmt.Sprintf(
		"Hi there!\n\n"+
			"Someone (hopefully you!) requested to sign in to your KuduPay student account.\n\n"+
			"Click the link below to securely sign in:\n%s\n\n"+
			"This secure link will expire in 15 minutes for your protection.\n\n"+
			"If you didn't request this login link, you can safely ignore this email. Your account remains secure.\n\n"+
			"Best regards,\nThe KuduPay Team",
		verifyLink,
	)
	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333; font-size: 24px;">Your Secure Login Link</h1>
  <p style="font-size: 16px; line-height: 1.5;">Hi there!</p>
  <p style="font-size: 16px; line-height: 1.5;">Someone (hopefully you!) requested to sign in to your KuduPay student account.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #007bff; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; display: inline-block; font-size: 16px; font-weight: bold;">Sign In Securely</a>
  </div>
  <p style="font-size: 14px; color: #666; text-align: center;">Or copy and paste this link into your browser:</p>
  <p style="font-size: 12px; color: #666; word-break: break-all; text-align: center;">%s</p>
  <p style="margin: 0; font-size: 14px; color: #856404;"><strong>Important:</strong> This secure link will expire in 15 minutes for your protection.</p>
  <p style="font-size: 14px; line-height: 1.5; color: #666;">If you didn't request this login link, you can safely ignore this email. Your account remains secure.</p>
  <p style="font-size: 14px; color: #666;">Best regards,<br><strong>The KuduPay Team</strong></p>
</div>`, verifyLink, verifyLink)

	return m.Send(ctx, to, subject, text, html)
}

func (m *Mailer) buildVerifyLink(magicToken string) string {
	base := strings.TrimRight(m.cfg.FrontendURL, "/")
	return base + "/verify-intent?token=" + url.QueryEscape(magicToken)
}
