package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/config"
	"github.com/oasis-app/oasis-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email, addr string, a smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg config.SMTPConfig, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
}

// SendCrisisAlert warns a user that their balance is projected to run out.
func (s *Sender) SendCrisisAlert(to, username string, health models.FinancialHealthSummary) error {
	if health.CrisisDate == nil || health.DaysUntilCrisis == nil {
		return fmt.Errorf("no crisis in summary")
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Your balance may run out soon"
	e.Text = []byte(crisisBody(username, health))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send crisis alert to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Crisis alert sent to %s", to)
	return nil
}

func crisisBody(username string, health models.FinancialHealthSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", username)
	if *health.DaysUntilCrisis == 0 {
		b.WriteString("Your projected balance is at or below zero today.\n")
	} else {
		fmt.Fprintf(&b, "Your projected balance may reach zero on %s, in %d days.\n",
			*health.CrisisDate, *health.DaysUntilCrisis)
	}
	fmt.Fprintf(&b, "Your financial health score is %d/100.\n", health.Score)
	if len(health.Recommendations) > 0 {
		b.WriteString("\nA few things that can help:\n")
		for _, r := range health.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString("\nOpen Oasis to see nearby resources and check your benefits.\n\nThe Oasis team")
	return b.String()
}
