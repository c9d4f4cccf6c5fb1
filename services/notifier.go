package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/devduo/studio-backend/models"
	"github.com/rs/zerolog"
)

// Notifier receives the outcome of store operations. It has the same method set as
// store.Notifier.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) LogNotifier {
	return LogNotifier{logger: logger}
}

func (l LogNotifier) Notify(_ context.Context, n models.Notification) {
	event := l.logger.Info()
	if n.Destructive {
		event = l.logger.Warn()
	}
	event.Str("operation", n.Operation).Str("title", n.Title).Msg(n.Description)
}

// EmailNotifier mails failure notifications to the studio team
type EmailNotifier struct {
	sender     *EmailSender
	recipients []string
}

func NewEmailNotifier(sender *EmailSender, recipients []string) *EmailNotifier {
	return &EmailNotifier{sender: sender, recipients: recipients}
}

func (e *EmailNotifier) Notify(ctx context.Context, n models.Notification) {
	if !n.Destructive || len(e.recipients) == 0 {
		return
	}
	subject := fmt.Sprintf("[devduo admin] %s: %s", n.Title, n.Operation)
	body := fmt.Sprintf("<p>%s</p><p><small>%s</small></p>",
		html.EscapeString(n.Description), time.Now().UTC().Format(time.RFC1123))
	_ = e.sender.SendEmail(ctx, subject, body, e.recipients)
}

// SMSNotifier texts failure notifications
type SMSNotifier struct {
	sender  *SMSSender
	numbers []string
}

func NewSMSNotifier(sender *SMSSender, numbers []string) *SMSNotifier {
	return &SMSNotifier{sender: sender, numbers: numbers}
}

func (s *SMSNotifier) Notify(_ context.Context, n models.Notification) {
	if !n.Destructive || len(s.numbers) == 0 {
		return
	}
	_ = s.sender.SendSMS(n.Title+": "+n.Description, s.numbers)
}

// FanOut delivers each notification to every sink in order
type FanOut []Notifier

func (f FanOut) Notify(ctx context.Context, n models.Notification) {
	for _, sink := range f {
		sink.Notify(ctx, n)
	}
}

// Background delivers notifications on a separate goroutine so slow sinks never hold up the
// operation that produced them. The request context is detached and bounded by timeout.
type Background struct {
	next    Notifier
	timeout time.Duration
	// done is called after each delivery; tests use it to wait
	done func()
}

func NewBackground(next Notifier, timeout time.Duration) *Background {
	return &Background{next: next, timeout: timeout, done: func() {}}
}

func (b *Background) Notify(ctx context.Context, n models.Notification) {
	detached := context.WithoutCancel(ctx)
	go func() {
		defer b.done()
		ctx, cancel := context.WithTimeout(detached, b.timeout)
		defer cancel()
		b.next.Notify(ctx, n)
	}()
}
