package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	subjectFollowUpTask     = "High-risk member needs a follow-up"
	subjectRecomputeSummary = "Retention recompute summary"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendFollowUpTaskEmail(ctx context.Context, toEmail, memberName, taskURL string) error {
	content, err := renderEmailTemplate("followup_task.html", followUpTaskEmailData{
		baseEmailData: baseEmailData{
			Title:    subjectFollowUpTask,
			Heading:  "A member needs your attention",
			CTALabel: "Open task",
			CTAURL:   taskURL,
		},
		MemberName: memberName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectFollowUpTask, content)
}

func (s *SMTPSender) SendRecomputeSummaryEmail(ctx context.Context, toEmail string, summary RecomputeSummary) error {
	content, err := renderEmailTemplate("recompute_summary.html", recomputeSummaryEmailData{
		baseEmailData: baseEmailData{
			Title:    subjectRecomputeSummary,
			Heading:  "Last retention recompute",
			CTALabel: "Open dashboard",
			CTAURL:   summary.DashboardURL,
		},
		Processed:    summary.Processed,
		High:         summary.High,
		Medium:       summary.Medium,
		Low:          summary.Low,
		TasksCreated: summary.TasksCreated,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectRecomputeSummary, content)
}
