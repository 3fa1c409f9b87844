// Package digest emails every user a summary of the previous month on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Users lists every registered user
type Users interface {
	Users(ctx context.Context) ([]models.User, error)
}

// Summarizer aggregates one user's transactions
type Summarizer interface {
	Summary(ctx context.Context, owner, month string) (models.Summary, error)
}

// Mailer delivers a digest to one user
type Mailer interface {
	SendMonthlyDigest(user models.User, summary models.Summary) error
}

// Scheduler runs the digest job
type Scheduler struct {
	spec      string
	users     Users
	summaries Summarizer
	mailer    Mailer
	log       *logrus.Logger
	now       func() time.Time
}

// NewScheduler validates the cron spec and returns a scheduler for it
func NewScheduler(spec string, users Users, summaries Summarizer, mailer Mailer, log *logrus.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:      spec,
		users:     users,
		summaries: summaries,
		mailer:    mailer,
		log:       log,
		now:       time.Now,
	}, nil
}

// Run starts the cron loop and blocks until ctx is cancelled and any
// in-flight job has finished
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(s.log)))
	_, err := c.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.WithError(err).Error("Monthly digest failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest: %w", err)
	}

	s.log.Infof("Monthly digest scheduled: %s", s.spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("Monthly digest scheduler stopped")
	return nil
}

// RunOnce sends the previous month's digest to every user who had
// transactions in it and returns how many emails were sent
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	month := PreviousMonth(s.now())
	users, err := s.users.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var (
		sent, failed int
		result       *multierror.Error
	)
	for _, user := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		summary, err := s.summaries.Summary(ctx, user.ID, month)
		if err != nil {
			failed++
			result = multierror.Append(result, fmt.Errorf("summary for %s: %w", user.Email, err))
			continue
		}
		if !slices.Contains(summary.Months, month) {
			continue
		}
		if err := s.mailer.SendMonthlyDigest(user, summary); err != nil {
			failed++
			result = multierror.Append(result, err)
			continue
		}
		sent++
	}

	s.log.WithFields(logrus.Fields{
		"month":  month,
		"users":  len(users),
		"sent":   sent,
		"failed": failed,
	}).Info("Monthly digest finished")
	return sent, result.ErrorOrNil()
}

// PreviousMonth returns the YYYY-MM month before the one containing t
func PreviousMonth(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, -1, 0).Format("2006-01")
}
