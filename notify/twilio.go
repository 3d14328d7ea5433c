package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// BookingNotice is what the customer is told after a booking commits.
type BookingNotice struct {
	CustomerName  string
	CustomerPhone string
	TableName     string
	Date          string
	Time          string
}

func (n BookingNotice) Message() string {
	return fmt.Sprintf("Hi %s, your table %s is booked for %s at %s. See you soon!",
		n.CustomerName, n.TableName, n.Date, n.Time)
}

type BookingNotifier interface {
	NotifyBooking(ctx context.Context, n BookingNotice) error
}

type Noop struct{}

func (Noop) NotifyBooking(context.Context, BookingNotice) error { return nil }

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends booking confirmations by SMS, or WhatsApp for E.164 numbers
// when a WhatsApp sender is configured.
type Twilio struct {
	api          messageCreator
	from         string
	whatsAppFrom string
}

func NewTwilio(accountSID, authToken, from, whatsAppFrom string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{api: client.Api, from: from, whatsAppFrom: whatsAppFrom}
}

func (t *Twilio) NotifyBooking(_ context.Context, n BookingNotice) error {
	if strings.TrimSpace(n.CustomerPhone) == "" {
		return nil
	}
	params := t.params(n)
	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", n.CustomerPhone, err)
	}
	return nil
}

func (t *Twilio) params(n BookingNotice) *twilioApi.CreateMessageParams {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(n.Message())

	// Use WhatsApp if phone is in E.164 format and starts with '+'
	if strings.HasPrefix(n.CustomerPhone, "+") && t.whatsAppFrom != "" {
		params.SetTo("whatsapp:" + n.CustomerPhone)
		params.SetFrom("whatsapp:" + t.whatsAppFrom)
	} else {
		params.SetTo(n.CustomerPhone)
		params.SetFrom(t.from)
	}
	return params
}
