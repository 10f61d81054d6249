// Package mail delivers report notifications over SMTP. Delivery is best
// effort throughout the tool: callers log failures and keep going.
package mail

import (
	"fmt"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/dbailuk/arcgis-automation/internal/fsutil"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Sender holds the SMTP settings for report delivery.
type Sender struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Recipient string

	log *zap.SugaredLogger
}

// NewSender creates a Sender from configuration values.
func NewSender(host string, port int, username, password, recipient string, log *zap.SugaredLogger) *Sender {
	return &Sender{
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		Recipient: recipient,
		log:       log,
	}
}

// Configured reports whether enough settings are present to attempt delivery.
func (s *Sender) Configured() bool {
	return s.Host != "" && s.Username != "" && s.Recipient != ""
}

// Send delivers a plain-text message, optionally attaching a report file.
// A missing attachment path is skipped with a warning rather than failing
// the whole delivery.
func (s *Sender) Send(subject, body, attachmentPath string) error {
	if !s.Configured() {
		return fmt.Errorf("%w: SMTP settings are incomplete", errors.ErrMailDelivery)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.Username); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMailDelivery, err.Error())
	}
	if err := msg.To(s.Recipient); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMailDelivery, err.Error())
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if attachmentPath != "" {
		if fsutil.FileExists(attachmentPath) {
			msg.AttachFile(attachmentPath)
		} else {
			s.log.Warnw("Attachment not found, sending without it", "path", attachmentPath)
		}
	}

	client, err := gomail.NewClient(s.Host,
		gomail.WithPort(s.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.Username),
		gomail.WithPassword(s.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMailDelivery, err.Error())
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMailDelivery, err.Error())
	}

	s.log.Infow("Email sent", "to", s.Recipient, "subject", subject)
	return nil
}
