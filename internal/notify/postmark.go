package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/mrz1836/postmark"

	"teamdesk/internal/reminder"
)

const postmarkTag = "deadline-reminder"

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
}

// Postmark sends reminders as transactional email.
type Postmark struct {
	client *postmark.Client
	from   string
}

func NewPostmark(cfg PostmarkConfig) (*Postmark, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("%w: sender email: %v", ErrInvalidConfig, err)
	}
	return &Postmark{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   cfg.SenderEmail,
	}, nil
}

func (p *Postmark) Notify(ctx context.Context, n reminder.Notification) error {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.from,
		To:       n.Recipient,
		Subject:  Subject(n),
		Tag:      postmarkTag,
		TextBody: Body(n),
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
