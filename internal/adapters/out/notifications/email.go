// Package notifications delivers human-facing notifications. The production
// implementation sends plain-text email over SMTP; tests and local runs use
// the in-memory recorder.
package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// EmailSender implements ports.NotificationSender over SMTP.
type EmailSender struct {
	addr string
	from string
	auth smtp.Auth

	// send is swappable so unit tests can intercept the wire call.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender creates a sender talking to the SMTP server at addr
// (host:port). Auth may be nil for unauthenticated relays.
func NewEmailSender(addr, from string, auth smtp.Auth) *EmailSender {
	return &EmailSender{addr: addr, from: from, auth: auth, send: smtp.SendMail}
}

// Send delivers one plain-text message to destination. The first line of
// the message body doubles as the subject.
func (s *EmailSender) Send(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := message
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, destination, subject, message)

	if err := s.send(s.addr, s.auth, s.from, []string{destination}, []byte(payload)); err != nil {
		return fmt.Errorf("notifications: send to %s: %w", destination, err)
	}
	return nil
}

// Recorded is one notification captured by the Recorder.
type Recorded struct {
	Destination string
	Message     string
}

// Recorder is an in-memory ports.NotificationSender for tests and local
// development.
type Recorder struct {
	mu   sync.Mutex
	sent []Recorded
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the notification.
func (r *Recorder) Send(_ context.Context, destination, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Recorded{Destination: destination, Message: message})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.sent))
	copy(out, r.sent)
	return out
}
