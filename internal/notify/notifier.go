// Package notify persists notification records and sends templated
// emails to users according to their preferences. Dispatching is
// best-effort relative to the request that triggered it: callers fire
// after their transaction commits and failures are logged, never
// propagated.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Al0olo/Cloud-Government/internal/repository"
)

// Mailer sends one HTML email. The SMTP implementation lives below; a
// test double can capture sent mail instead.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends email over SMTP via gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP connection parameters.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// Service is the notification dispatcher. The notification row is
// written unconditionally; the email goes out only when the
// recipient's per-type preference is not explicitly disabled.
type Service struct {
	notifications *repository.NotificationRepo
	users         *repository.UserRepo
	mailer        Mailer
}

// NewService wires the dispatcher to its repositories and mailer.
func NewService(notifications *repository.NotificationRepo, users *repository.UserRepo, mailer Mailer) *Service {
	return &Service{notifications: notifications, users: users, mailer: mailer}
}

// Send records and delivers one notification synchronously. A failed
// insert propagates; a failed email send also propagates, but by then
// the row already exists, so the record of the event survives a mail
// outage.
func (s *Service) Send(ctx context.Context, notifType string, userID, applicationID uint64, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := s.notifications.Create(ctx, userID, notifType, applicationID, payload); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !emailEnabled(user.NotificationPreferences, notifType) {
		return nil
	}
	tmpl, err := RenderTemplate(notifType, user.FirstName, data)
	if err != nil {
		return err
	}
	return s.mailer.Send(user.Email, tmpl.Subject, tmpl.Body)
}

// Dispatch delivers a notification asynchronously. Used after a
// successful commit; errors are logged and never reach the caller.
func (s *Service) Dispatch(notifType string, userID, applicationID uint64, data map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Send(ctx, notifType, userID, applicationID, data); err != nil {
			log.Printf("notify: dispatch %s to user %d failed: %v", notifType, userID, err)
		}
	}()
}

// emailEnabled implements the preference contract: email goes out
// unless the stored preferences object has {"<type>": {"email": false}}.
func emailEnabled(prefs json.RawMessage, notifType string) bool {
	if len(prefs) == 0 {
		return true
	}
	var parsed map[string]map[string]any
	if err := json.Unmarshal(prefs, &parsed); err != nil {
		return true
	}
	typePrefs, ok := parsed[notifType]
	if !ok {
		return true
	}
	if v, ok := typePrefs["email"].(bool); ok {
		return v
	}
	return true
}
