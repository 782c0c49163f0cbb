package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MailClient is the slice of *sendgrid.Client we use.
type MailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridConfig struct {
	FromEmail      string
	VerifiedDomain string
	Sandbox        bool
}

type SendGridNotifier struct {
	client MailClient
	cfg    SendGridConfig
}

func NewSendGridNotifier(client MailClient, cfg SendGridConfig) *SendGridNotifier {
	return &SendGridNotifier{client: client, cfg: cfg}
}

func (n *SendGridNotifier) CheckConfig() error {
	if n.client == nil {
		return fmt.Errorf("%w: sendgrid client is not configured", utils.ErrConfiguration)
	}
	return utils.ValidateSenderAddress(n.cfg.FromEmail, n.cfg.VerifiedDomain)
}

func (n *SendGridNotifier) SendInvite(ctx context.Context, msg InviteMessage) error {
	if err := n.CheckConfig(); err != nil {
		return err
	}
	job, d := msg.Job, msg.Driver

	subject := fmt.Sprintf("[%s] New job in %s on %s", utils.OrganizationName, job.City, job.WindowStart.Format("Mon Jan 2"))

	termsLine := ""
	if job.BillingModel.RequiresTermsAck() {
		termsLine = "Accepting this job requires confirming our terms of service on the next page.\n"
	}

	plain := fmt.Sprintf(
		"Hi %s,\n\nA job is available that matches your vehicle.\n\n"+
			"Where: %s, %s %s\nWhen: %s - %s (UTC)\nVehicle: %s\nRequirements: %s\n\n%s"+
			"Accept: %s\nDecline: %s\n\n"+
			"The first driver to accept gets the job. This invite expires %s.\n",
		d.FirstName,
		job.Street, job.PostalCode, job.City,
		job.WindowStart.UTC().Format("Jan 2 15:04"), job.WindowEnd.UTC().Format("Jan 2 15:04"),
		job.VehicleType, job.Requirements, termsLine,
		msg.AcceptURL, msg.DeclineURL,
		msg.ExpiresAt.UTC().Format("Jan 2 15:04 MST"),
	)

	htmlBody := fmt.Sprintf(`<p>Hi %s,</p>
<p>A job is available that matches your vehicle.</p>
<ul>
<li><strong>Where:</strong> %s, %s %s</li>
<li><strong>When:</strong> %s - %s (UTC)</li>
<li><strong>Vehicle:</strong> %s</li>
<li><strong>Requirements:</strong> %s</li>
</ul>
<p>%s</p>
<p><a href="%s">Accept this job</a> &nbsp;|&nbsp; <a href="%s">Decline</a></p>
<p>The first driver to accept gets the job. This invite expires %s.</p>`,
		html.EscapeString(d.FirstName),
		html.EscapeString(job.Street), html.EscapeString(job.PostalCode), html.EscapeString(job.City),
		job.WindowStart.UTC().Format("Jan 2 15:04"), job.WindowEnd.UTC().Format("Jan 2 15:04"),
		html.EscapeString(job.VehicleType), html.EscapeString(job.Requirements),
		html.EscapeString(termsLine),
		html.EscapeString(msg.AcceptURL), html.EscapeString(msg.DeclineURL),
		msg.ExpiresAt.UTC().Format("Jan 2 15:04 MST"),
	)

	return n.send(d.FullName(), d.Email, subject, plain, htmlBody)
}

func (n *SendGridNotifier) SendAssignmentConfirmation(ctx context.Context, msg ConfirmationMessage) error {
	if err := n.CheckConfig(); err != nil {
		return err
	}
	job, d, a := msg.Job, msg.Driver, msg.Assignment

	subject := fmt.Sprintf("[%s] You got the job in %s", utils.OrganizationName, job.City)
	plain := fmt.Sprintf(
		"Hi %s,\n\nYou are assigned to the job at %s, %s %s on %s (UTC).\n"+
			"Rate: %s %.2f\nReference: %s\n\nWe will be in touch to confirm the details.\n",
		d.FirstName, job.Street, job.PostalCode, job.City,
		job.WindowStart.UTC().Format("Jan 2 15:04"),
		a.RateType, float64(a.RateCents)/100, a.ID,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>You are assigned to the job at %s, %s %s on %s (UTC).</p>`+
			`<p>Rate: %s %.2f<br>Reference: %s</p><p>We will be in touch to confirm the details.</p>`,
		html.EscapeString(d.FirstName),
		html.EscapeString(job.Street), html.EscapeString(job.PostalCode), html.EscapeString(job.City),
		job.WindowStart.UTC().Format("Jan 2 15:04"),
		a.RateType, float64(a.RateCents)/100, a.ID,
	)
	return n.send(d.FullName(), d.Email, subject, plain, htmlBody)
}

func (n *SendGridNotifier) send(toName, toEmail, subject, plain, htmlBody string) error {
	from := mail.NewEmail(utils.OrganizationName, n.cfg.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	m := mail.NewSingleEmail(from, subject, to, plain, htmlBody)

	// Token links must reach the driver unmodified.
	m.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{
			Enable:     utils.Ptr(false),
			EnableText: utils.Ptr(false),
		},
	}
	if n.cfg.Sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	resp, err := n.client.Send(m)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", utils.ErrExternalServiceFailure, err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d", utils.ErrExternalServiceFailure, resp.StatusCode)
	}
	return nil
}
