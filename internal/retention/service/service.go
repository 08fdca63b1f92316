// Package service implements the retention workflows: periodic risk
// recomputes, follow-up task dispatch, and task lifecycle management.
package service

import (
	"time"

	"gymops_backend/internal/events"
	"gymops_backend/internal/retention/repository"
	"gymops_backend/platform/logger"
)

const (
	// followUpTitle is the fixed title for dispatcher-created tasks.
	followUpTitle = "Follow up high-risk member"

	// followUpNote is the fixed note on dispatcher-created tasks.
	followUpNote = "Reach out personally and ask how their training is going."

	// followUpPriority marks dispatcher tasks as most urgent.
	followUpPriority = 1

	// followUpDueIn is how long staff get to act on a new follow-up.
	followUpDueIn = 48 * time.Hour

	// resolvedCooldown suppresses a new follow-up after one was
	// recently completed or dismissed for the same member.
	resolvedCooldown = 14 * 24 * time.Hour

	// rejectedPaymentLookback bounds the rejected-payment signal.
	rejectedPaymentLookback = 30 * 24 * time.Hour
)

// Service orchestrates retention risk and follow-up task operations.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// New creates a new retention service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}
