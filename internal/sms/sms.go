// Package sms delivers text messages to subscribers.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers one text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Twilio implements Sender using the Twilio messaging API.
type Twilio struct {
	client *twilio.RestClient
	from   string
}

// NewTwilio creates a Twilio sender with the given credentials.
func NewTwilio(accountSID, authToken, fromNumber string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{client: client, from: fromNumber}
}

// Send submits the message. The Twilio SDK carries its own request timeout,
// so ctx is only consulted before the call.
func (t *Twilio) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", fmt.Errorf("twilio send failed (code=%d): %s", restErr.Code, restErr.Message)
		}
		return "", fmt.Errorf("twilio send: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio send: response missing message sid")
	}
	return *resp.Sid, nil
}
