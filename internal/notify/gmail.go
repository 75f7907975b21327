package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"titan/internal/config"
	"titan/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

var ErrInvalidAddress = errors.New("invalid email address")

// NewGmailService builds a Gmail API client from an OAuth refresh token.
func NewGmailService(ctx context.Context, cfg config.EmailConfig, opts ...option.ClientOption) (*gmail.Service, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now(), // force refresh
	}

	opts = append([]option.ClientOption{option.WithTokenSource(oauthCfg.TokenSource(ctx, token))}, opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return srv, nil
}

// GmailMailer emails the owner and the customer about a new booking.
type GmailMailer struct {
	service    *gmail.Service
	from       string
	ownerEmail string
	logger     *zerolog.Logger
}

func NewGmailMailer(service *gmail.Service, from, ownerEmail string, logger *zerolog.Logger) *GmailMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &GmailMailer{
		service:    service,
		from:       from,
		ownerEmail: ownerEmail,
		logger:     logger,
	}
}

func (m *GmailMailer) NotifyBookingCreated(ctx context.Context, b models.Booking) error {
	var errs []error

	if m.ownerEmail != "" {
		if err := m.send(ctx, m.ownerEmail, OwnerMessage(b)); err != nil {
			errs = append(errs, fmt.Errorf("%w: owner email: %w", ErrNotification, err))
		}
	} else {
		m.logger.Debug().Str("booking_id", b.ID).Msg("owner email skipped (no address)")
	}

	if raw := b.Field(models.FieldCustomerEmail); raw != "" {
		if _, err := headerAddress(raw); err != nil {
			m.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("customer email skipped (invalid address)")
		} else if err := m.send(ctx, raw, CustomerMessage(b)); err != nil {
			errs = append(errs, fmt.Errorf("%w: customer email: %w", ErrNotification, err))
		}
	} else {
		m.logger.Debug().Str("booking_id", b.ID).Msg("customer email skipped (no address)")
	}

	return errors.Join(errs...)
}

func (m *GmailMailer) send(ctx context.Context, to string, msg Message) error {
	raw, err := ComposeMIME(m.from, to, msg)
	if err != nil {
		return err
	}
	_, err = m.service.Users.Messages.
		Send("me", &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}).
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	m.logger.Info().Str("to", to).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// headerAddress parses a single bare address and renders it for a header.
// Display names and anything carrying CR or LF are rejected.
func headerAddress(raw string) (string, error) {
	if strings.ContainsAny(raw, "\r\n") {
		return "", fmt.Errorf("%w: contains line break", ErrInvalidAddress)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return (&mail.Address{Address: addr.Address}).String(), nil
}

// ComposeMIME renders a plain-text RFC 5322 message. from may be empty, in
// which case Gmail fills in the authenticated account.
func ComposeMIME(from, to string, msg Message) ([]byte, error) {
	toHeader, err := headerAddress(to)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	var sb strings.Builder
	if from != "" {
		fromHeader, err := headerAddress(from)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		fmt.Fprintf(&sb, "From: %s\r\n", fromHeader)
	}
	fmt.Fprintf(&sb, "To: %s\r\n", toHeader)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(sb.String()), nil
}
