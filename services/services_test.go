package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func newTestEmailSender(t *testing.T, handler http.HandlerFunc) *EmailSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sender, err := NewEmailSender("re_test", "DevDuo <[email protected]>")
	require.NoError(t, err)
	sender.endpoint = srv.URL
	return sender
}

func TestNewEmailSender_RequiresConfig(t *testing.T) {
	_, err := NewEmailSender("", "from")
	assert.ErrorIs(t, err, errs.ErrConfigMissing)
	_, err = NewEmailSender("key", "")
	assert.ErrorIs(t, err, errs.ErrConfigMissing)
}

func TestSendEmail(t *testing.T) {
	var got ResendEmailRequest
	sender := newTestEmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":"email_123"}`)
	})

	err := sender.SendEmail(context.Background(), "subject", "<p>hi</p>", []string{"[email protected]"})
	require.NoError(t, err)
	assert.Equal(t, []string{"[email protected]"}, got.To)
	assert.Equal(t, "<p>hi</p>", got.Html)
}

func TestSendEmail_Errors(t *testing.T) {
	sender := newTestEmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"Invalid from address"}`)
	})

	err := sender.SendEmail(context.Background(), "s", "b", []string{"[email protected]"})
	assert.ErrorContains(t, err, "Invalid from address")

	err = sender.SendEmail(context.Background(), "s", "b", nil)
	assert.ErrorContains(t, err, "recipient")
}

func TestSendEmail_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, "7", errs.IsRateLimitError},
		{"bad key", http.StatusUnauthorized, "", func(err error) bool { return errors.Is(err, errs.ErrInvalidAPIKey) }},
		{"outage", http.StatusBadGateway, "", errs.IsServiceUnavailableError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newTestEmailSender(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
			})
			err := sender.SendEmail(context.Background(), "s", "b", []string{"[email protected]"})
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

type fakeMessages struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (f *fakeMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	to := *params.To
	if f.fail[to] {
		return nil, errors.New("unverified number")
	}
	f.sent = append(f.sent, to+"|"+*params.From+"|"+*params.Body)
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestSendSMS_PartialFailure(t *testing.T) {
	api := &fakeMessages{fail: map[string]bool{"+5511000000000": true}}
	sender := NewSMSSenderWith(api, "+15550001111")

	require.NoError(t, sender.SendSMS("hello", []string{"+5511999999999"}))
	assert.Equal(t, []string{"+5511999999999|+15550001111|hello"}, api.sent)

	err := sender.SendSMS("hello", []string{"+5511000000000", "+5511888888888"})
	assert.True(t, errs.IsPartialFailureError(err))
	assert.Len(t, api.sent, 2)
}

func TestNotifiers_OnlyFailuresLeaveTheProcess(t *testing.T) {
	api := &fakeMessages{}
	sms := NewSMSNotifier(NewSMSSenderWith(api, "+1"), []string{"+2"})

	var emails int
	sender := newTestEmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		emails++
		_, _ = io.WriteString(w, `{"id":"x"}`)
	})
	email := NewEmailNotifier(sender, []string{"[email protected]"})

	var logs bytes.Buffer
	fan := FanOut{NewLogNotifier(zerolog.New(&logs)), email, sms}

	fan.Notify(context.Background(), models.Notification{Title: "Success!", Description: "Project added successfully.", Operation: "add"})
	assert.Empty(t, api.sent)
	assert.Zero(t, emails)

	fan.Notify(context.Background(), models.Notification{Title: "Error", Description: "Failed to add project.", Destructive: true, Operation: "add"})
	assert.Len(t, api.sent, 1)
	assert.Equal(t, 1, emails)
	assert.Equal(t, 2, strings.Count(logs.String(), "\n"))
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify(ctx context.Context, _ models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func TestBackground_Delivers(t *testing.T) {
	inner := &countingNotifier{}
	bg := NewBackground(inner, time.Second)
	var wg sync.WaitGroup
	bg.done = wg.Done

	ctx, cancel := context.WithCancel(context.Background())
	wg.Add(2)
	bg.Notify(ctx, models.Notification{})
	cancel()
	bg.Notify(ctx, models.Notification{})
	wg.Wait()

	assert.Equal(t, 2, inner.n)
}

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, f.err
}

func TestImageUploader_Upload(t *testing.T) {
	putter := &fakePutter{}
	u := NewImageUploaderWith(putter, "devduo-assets", "https://cdn.devduo.com.br/")

	url, err := u.Upload(context.Background(), "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.devduo.com.br/projects/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, "devduo-assets", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
}

func TestImageUploader_Rejections(t *testing.T) {
	u := NewImageUploaderWith(&fakePutter{}, "b", "https://cdn")
	_, err := u.Upload(context.Background(), "application/pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, errs.ErrUnsupportedMediaType)

	failing := NewImageUploaderWith(&fakePutter{err: errors.New("access denied")}, "b", "https://cdn")
	_, err = failing.Upload(context.Background(), "image/jpeg", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, errs.ErrServiceUnreachable)
}
