package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/rs/zerolog/log"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// EmailSender sends mail through the Resend API.
//
// Requires:
//   - RESEND_API_KEY: Your Resend API key
//   - RESEND_FROM_EMAIL: The sender address (e.g., "DevDuo <[email protected]>")
type EmailSender struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

func NewEmailSender(apiKey, from string) (*EmailSender, error) {
	if apiKey == "" {
		return nil, errs.NewEnvironmentVariableError("RESEND_API_KEY")
	}
	if from == "" {
		return nil, errs.NewEnvironmentVariableError("RESEND_FROM_EMAIL")
	}
	return &EmailSender{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SendEmail sends an HTML email to recipients
func (s *EmailSender) SendEmail(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	payload := ResendEmailRequest{
		From:    s.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.NewServiceUnreachableError("resend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return resendError(resp, bodyBytes)
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}

	return nil
}

// resendError maps a failed Resend response to the error the notifier logs
func resendError(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return errs.NewRateLimitError("resend", retryAfter)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.NewInvalidAPIKeyError("resend")
	case resp.StatusCode >= http.StatusInternalServerError:
		return errs.NewServiceUnavailableError("resend", resp.StatusCode)
	}

	var errorResp ResendErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
	}
	return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(body))
}
