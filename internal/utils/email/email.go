package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/utils"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

const topCategories = 3

// Sender handles sending emails via SMTP
type Sender struct {
	cfg     *config.Config
	logger  *logrus.Logger
	deliver func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{cfg: cfg, logger: logger}
	s.deliver = s.sendSMTP
	return s
}

// SendMonthlyDigest emails a user their totals for one month
func (s *Sender) SendMonthlyDigest(user models.User, summary models.Summary) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = fmt.Sprintf("Your expense summary for %s", summary.Month)
	e.Text = []byte(DigestBody(user, summary))

	if err := s.deliver(e); err != nil {
		s.logger.Errorf("Failed to send digest to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}

// DigestBody renders the plain text body of a monthly digest
func DigestBody(user models.User, summary models.Summary) string {
	name := user.Name
	if name == "" {
		name = user.Email
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Here is your summary for %s.\n\n", summary.Month)
	fmt.Fprintf(&b, "Income:  ₹%s\n", utils.FormatINR(summary.Monthly.Income))
	fmt.Fprintf(&b, "Expense: ₹%s\n", utils.FormatINR(summary.Monthly.Expense))
	fmt.Fprintf(&b, "Balance: ₹%s\n", utils.FormatINR(summary.Monthly.NetBalance))

	if len(summary.ByCategory) > 0 {
		b.WriteString("\nTop expense categories (all time):\n")
		for i, c := range summary.ByCategory {
			if i == topCategories {
				break
			}
			fmt.Fprintf(&b, "  %-10s ₹%s\n", c.Category, utils.FormatINR(c.Amount))
		}
	}

	fmt.Fprintf(&b, "\nOverall balance: ₹%s\n", utils.FormatINR(summary.Totals.NetBalance))
	b.WriteString("\nBest regards,\nExpense Tracker")
	return b.String()
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}
