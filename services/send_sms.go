package services

import (
	"fmt"

	"github.com/devduo/studio-backend/errs"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the Twilio messages endpoint
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSender sends text messages from a Twilio number
type SMSSender struct {
	api  MessageCreator
	from string
}

func NewSMSSender(accountSID, authToken, from string) (*SMSSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, errs.NewEnvironmentVariableError("TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN")
	}
	if from == "" {
		return nil, errs.NewEnvironmentVariableError("TWILIO_FROM")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMSSenderWith(client.Api, from), nil
}

func NewSMSSenderWith(api MessageCreator, from string) *SMSSender {
	return &SMSSender{api: api, from: from}
}

// SendSMS sends body to every number, continuing past failures. It returns a partial failure
// error naming the numbers that could not be reached.
func (s *SMSSender) SendSMS(body string, to []string) error {
	var failed []string
	for _, number := range to {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(number)
		params.SetFrom(s.from)
		params.SetBody(body)

		resp, err := s.api.CreateMessage(params)
		if err != nil {
			log.Error().Err(err).Str("to", number).Msg("Failed to send SMS via Twilio")
			failed = append(failed, number)
			continue
		}
		if resp != nil && resp.Sid != nil {
			log.Info().Str("sid", *resp.Sid).Msg("Successfully sent SMS via Twilio")
		}
	}
	if len(failed) > 0 {
		return errs.NewPartialFailureError(fmt.Sprintf("send sms to %d numbers", len(to)), failed)
	}
	return nil
}
