package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sender delivers a one-time code to a phone number. Delivery is best
// effort: callers log failures and carry on, they never fail the enclosing
// operation on a gateway error.
type Sender interface {
	Send(ctx context.Context, phoneNumber, code string) error
}

// KavenegarSender delivers codes through the Kavenegar SMS REST gateway.
type KavenegarSender struct {
	client *resty.Client
	sender string
}

func NewKavenegarSender(apiKey, sender string) *KavenegarSender {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("https://api.kavenegar.com/v1/%s", apiKey)).
		SetTimeout(10 * time.Second)
	return &KavenegarSender{client: client, sender: sender}
}

func (s *KavenegarSender) Send(ctx context.Context, phoneNumber, code string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"receptor": phoneNumber,
			"sender":   s.sender,
			"message":  fmt.Sprintf("Your Code: %s", code),
		}).
		Post("/sms/send.json")
	if err != nil {
		return errors.Wrap(err, "send sms")
	}
	if resp.IsError() {
		return errors.Errorf("send sms: gateway returned %s", resp.Status())
	}
	return nil
}

// LogSender writes the code to the log instead of sending it. Used when no
// gateway credentials are configured.
type LogSender struct {
	log *logrus.Logger
}

func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, phoneNumber, code string) error {
	s.log.WithFields(logrus.Fields{
		"phone_number": phoneNumber,
		"code":         code,
	}).Info("sms delivery skipped, no gateway configured")
	return nil
}
