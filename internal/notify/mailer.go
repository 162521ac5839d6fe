// Package notify delivers supervision schedules to teachers after an
// automatic allocation run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	"github.com/BenAmorMed/ExamSupervisor/pkg/config"
)

// Mailer sends schedule notifications over SMTP.
type Mailer struct {
	cfg    config.MailerConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer constructs an SMTP mailer. The send function defaults to
// smtp.SendMail and is only swapped in tests.
func NewMailer(cfg config.MailerConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SendSchedule mails the teacher their full supervision schedule, ordered by
// exam date then start time.
func (m *Mailer) SendSchedule(ctx context.Context, teacher *models.Teacher, sessions []models.Session) error {
	if teacher == nil {
		return fmt.Errorf("teacher nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	recipients := []string{teacher.Email}
	if m.cfg.BCC != "" {
		recipients = append(recipients, m.cfg.BCC)
	}

	msg := m.buildMessage(teacher, sessions)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(addr, auth, m.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("send schedule mail: %w", err)
	}
	m.logger.Info("schedule notification sent",
		zap.String("teacher_id", teacher.ID),
		zap.Int("sessions", len(sessions)))
	return nil
}

func (m *Mailer) buildMessage(teacher *models.Teacher, sessions []models.Session) []byte {
	ordered := make([]models.Session, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].ExamDate.Equal(ordered[j].ExamDate) {
			return ordered[i].ExamDate.Before(ordered[j].ExamDate)
		}
		return ordered[i].StartsAt.Before(ordered[j].StartsAt)
	})

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s %s,\r\n\r\n", teacher.FirstName, teacher.LastName)
	body.WriteString("Here is your exam supervision schedule:\r\n\r\n")
	for _, session := range ordered {
		fmt.Fprintf(&body, "- Date: %s | Time: %s - %s | Rooms: %s\r\n",
			session.ExamDate.Format("2006-01-02"),
			session.StartsAt.Format("15:04"),
			session.EndsAt.Format("15:04"),
			strings.Join(session.Rooms, ", "))
	}
	body.WriteString("\r\nPlease report any unavailability to the administration.\r\n")

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", teacher.Email)
	msg.WriteString("Subject: Your exam supervision schedule\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body.String())
	return []byte(msg.String())
}

// NopNotifier drops notifications, used when the mailer is disabled.
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier constructs a NopNotifier.
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopNotifier{logger: logger}
}

// SendSchedule logs and discards the notification.
func (n *NopNotifier) SendSchedule(_ context.Context, teacher *models.Teacher, sessions []models.Session) error {
	n.logger.Debug("mailer disabled, dropping schedule notification",
		zap.String("teacher_id", teacher.ID),
		zap.Int("sessions", len(sessions)))
	return nil
}
