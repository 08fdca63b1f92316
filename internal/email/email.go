// Package email delivers transactional mail for retention alerts.
package email

import "context"

// Sender delivers retention-related emails.
type Sender interface {
	// SendFollowUpTaskEmail alerts a recipient that a follow-up task was
	// opened for a high-risk member.
	SendFollowUpTaskEmail(ctx context.Context, toEmail, memberName, taskURL string) error
	// SendRecomputeSummaryEmail sends the nightly recompute digest.
	SendRecomputeSummaryEmail(ctx context.Context, toEmail string, summary RecomputeSummary) error
}

// RecomputeSummary carries the digest figures for the summary email.
type RecomputeSummary struct {
	DashboardURL string
	Processed    int
	High         int
	Medium       int
	Low          int
	TasksCreated int
}

// NoopSender drops all mail. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendFollowUpTaskEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendRecomputeSummaryEmail(context.Context, string, RecomputeSummary) error {
	return nil
}

var _ Sender = NoopSender{}
