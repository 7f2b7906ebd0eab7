// Package notify delivers account e-mails such as password reset codes.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Eyad010/postfeed/internal/logging"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message or returns an error; it never retries.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResetCodeMessage builds the e-mail carrying a password reset code.
func ResetCodeMessage(to, code string, ttl time.Duration) Message {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your password reset code (valid for %d min)", minutes),
		Body: fmt.Sprintf("Forgot your password? Use this code to reset it: %s\n\n"+
			"The code expires in %d minutes. If you didn't forget your password, please ignore this email!", code, minutes),
	}
}

// LogSender writes messages to the log. It is used when SMTP is not configured.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("component", "notify")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Warn(ctx, "smtp not configured, mail not delivered",
		"to", msg.To, "subject", msg.Subject)
	s.log.Debug(ctx, "undelivered mail body", "to", msg.To, "body", msg.Body)
	return nil
}
