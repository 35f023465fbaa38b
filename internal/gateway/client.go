// Package gateway orchestrates the validated SMS operations against the
// provider: send, fetch, redact, delete, and history extraction.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smslab/sms-extract/internal/config"
	"github.com/smslab/sms-extract/internal/observability/metrics"
	"github.com/smslab/sms-extract/internal/sms"
	"github.com/smslab/sms-extract/internal/twilioclient"
	"github.com/smslab/sms-extract/pkg/logging"
)

var tracer = otel.Tracer("smsextract.internal.gateway")

const (
	// MaxBodyLen is the Twilio SMS body ceiling; longer payloads truncate.
	MaxBodyLen = 1600
	// HistoryPageSize bounds one history extraction.
	HistoryPageSize = 100
	// validitySeconds limits how long an undelivered demo message stays queued.
	validitySeconds = 5
	// composedEmojiCount is the number of glyphs in a random demo payload.
	composedEmojiCount = 6
)

var (
	// ErrInvalidSID reports a locally rejected message identifier.
	ErrInvalidSID = errors.New("gateway: invalid message sid format")
	// ErrUnverifiedNumber reports a destination that failed provider lookup.
	ErrUnverifiedNumber = errors.New("gateway: destination number not verified")
	// ErrNoMessages distinguishes an empty history from a failed one.
	ErrNoMessages = errors.New("gateway: no messages extracted")
)

// ProviderAPI is the slice of the Twilio REST surface the gateway depends on.
type ProviderAPI interface {
	CreateMessage(ctx context.Context, params twilioclient.CreateMessageParams) (*twilioclient.Message, error)
	FetchMessage(ctx context.Context, sid string) (*twilioclient.Message, error)
	UpdateMessageBody(ctx context.Context, sid, body string) (*twilioclient.Message, error)
	DeleteMessage(ctx context.Context, sid string) (bool, error)
	ListMessages(ctx context.Context, pageSize int) ([]twilioclient.Message, error)
	LookupPhoneNumber(ctx context.Context, number string) (*twilioclient.PhoneNumberLookup, error)
}

var _ ProviderAPI = (*twilioclient.Client)(nil)

// Client composes the validation core with the provider collaborator. State
// is the immutable configuration only; every operation is a blocking call.
type Client struct {
	cfg     *config.Config
	api     ProviderAPI
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
}

// New builds a gateway client around a validated configuration.
func New(cfg *config.Config, api ProviderAPI, logger *logging.Logger, m *metrics.GatewayMetrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{cfg: cfg, api: api, logger: logger, metrics: m}
}

// FromNumber is the configured sending number in E.164 form.
func (c *Client) FromNumber() string { return c.cfg.FromNumber }

// ToNumber is the configured default destination number in E.164 form.
func (c *Client) ToNumber() string { return c.cfg.ToNumber }

// ComposeRandomMessage builds a unique demo payload from the configured
// identity banner plus a short uid and random emoji picks.
func (c *Client) ComposeRandomMessage() string {
	return sms.ComposeRandom(c.cfg.Identity(), composedEmojiCount)
}

// VerifyPhoneNumber checks a number against the provider lookup service and
// reports whether it is externally valid.
func (c *Client) VerifyPhoneNumber(ctx context.Context, digits string) bool {
	lookup, err := c.api.LookupPhoneNumber(ctx, digits)
	if err != nil {
		c.logger.Error("phone number lookup failed", "number", digits, "error", err)
		c.metrics.ObserveOperation("lookup", "error")
		return false
	}
	if !lookup.Valid {
		c.logger.Error("invalid phone number", "number", digits)
		c.metrics.ObserveOperation("lookup", "invalid")
		return false
	}
	c.logger.Info("phone number verified", "number", digits, "carrier", lookup.CarrierName())
	c.metrics.ObserveOperation("lookup", "ok")
	return true
}

// SendText verifies the destination, then submits the payload. Payloads over
// MaxBodyLen characters are truncated with a logged warning. A verification
// failure sends nothing and returns an empty identifier.
func (c *Client) SendText(ctx context.Context, toNumber, payload string) (string, error) {
	ctx, span := tracer.Start(ctx, "gateway.send")
	defer span.End()
	span.SetAttributes(attribute.String("sms.to", toNumber))

	if runes := []rune(payload); len(runes) >= MaxBodyLen {
		c.logger.Warn("message truncated", "limit", MaxBodyLen)
		payload = string(runes[:MaxBodyLen])
	}
	if !c.VerifyPhoneNumber(ctx, toNumber) {
		c.metrics.ObserveOperation("send", "unverified")
		return "", fmt.Errorf("%w: %s", ErrUnverifiedNumber, toNumber)
	}
	msg, err := c.api.CreateMessage(ctx, twilioclient.CreateMessageParams{
		To:             toNumber,
		From:           c.cfg.FromNumber,
		Body:           payload,
		ValidityPeriod: validitySeconds,
		Attempt:        1,
	})
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to send message", "to", toNumber, "error", err)
		c.metrics.ObserveOperation("send", "error")
		return "", err
	}
	c.logger.Info("message sent", "sid", msg.Sid, "status", msg.Status)
	c.metrics.ObserveOperation("send", "ok")
	return msg.Sid, nil
}

// ExtractSingleMessage fetches one message, parses it into a validated record,
// and writes a single-record snapshot. Malformed identifiers are rejected
// locally before any network call.
func (c *Client) ExtractSingleMessage(ctx context.Context, sid, filename string) (*sms.MessageRecord, error) {
	if !sms.ValidMessageSID(sid) {
		c.logger.Error("invalid message sid format", "sid", sid)
		c.metrics.ObserveOperation("extract_single", "invalid_sid")
		return nil, fmt.Errorf("%w: %q", ErrInvalidSID, sid)
	}
	msg, err := c.api.FetchMessage(ctx, sid)
	if err != nil {
		c.logger.Error("failed to fetch message", "sid", sid, "error", err)
		c.metrics.ObserveOperation("extract_single", "error")
		return nil, err
	}
	record, err := parseMessage(msg)
	if err != nil {
		c.logger.Error("failed to parse message", "sid", sid, "error", err)
		c.metrics.ObserveOperation("extract_single", "parse_error")
		return nil, err
	}
	extract := sms.NewExtract([]sms.MessageRecord{*record})
	if err := c.writeSnapshot(filename, extract); err != nil {
		// contained: the record is still returned
		c.logger.Error("failed to save snapshot", "file", filename, "error", err)
	}
	c.logger.Info("message extracted", "sid", sid)
	c.metrics.ObserveOperation("extract_single", "ok")
	return record, nil
}

// RedactMessageBody asks the provider to blank the message body. Success
// requires the returned body to equal the redaction sentinel, not just a
// successful call.
func (c *Client) RedactMessageBody(ctx context.Context, sid string) bool {
	if !sms.ValidMessageSID(sid) {
		c.logger.Error("invalid message sid format", "sid", sid)
		c.metrics.ObserveOperation("redact", "invalid_sid")
		return false
	}
	msg, err := c.api.UpdateMessageBody(ctx, sid, sms.RedactedBody)
	if err != nil {
		c.logger.Error("failed to redact message", "sid", sid, "error", err)
		c.metrics.ObserveOperation("redact", "error")
		return false
	}
	if msg.Body != sms.RedactedBody {
		c.logger.Error("redaction not applied", "sid", sid)
		c.metrics.ObserveOperation("redact", "mismatch")
		return false
	}
	c.logger.Info("message body redacted", "sid", sid)
	c.metrics.ObserveOperation("redact", "ok")
	return true
}

// DeleteMessage removes the entire message from the account.
func (c *Client) DeleteMessage(ctx context.Context, sid string) bool {
	if !sms.ValidMessageSID(sid) {
		c.logger.Error("invalid message sid format", "sid", sid)
		c.metrics.ObserveOperation("delete", "invalid_sid")
		return false
	}
	deleted, err := c.api.DeleteMessage(ctx, sid)
	if err != nil {
		c.logger.Error("failed to delete message", "sid", sid, "error", err)
		c.metrics.ObserveOperation("delete", "error")
		return false
	}
	c.logger.Info("message deleted", "sid", sid, "deleted", deleted)
	c.metrics.ObserveOperation("delete", "ok")
	return deleted
}

// ExtractAllMessages pulls up to HistoryPageSize messages of account history
// into one snapshot. Records that fail to parse are skipped, not fatal. An
// empty account yields ErrNoMessages instead of an empty snapshot.
func (c *Client) ExtractAllMessages(ctx context.Context, filename string) (int, error) {
	ctx, span := tracer.Start(ctx, "gateway.extract_history")
	defer span.End()

	msgs, err := c.api.ListMessages(ctx, HistoryPageSize)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to list messages", "error", err)
		c.metrics.ObserveOperation("extract_history", "error")
		return 0, err
	}
	records := make([]sms.MessageRecord, 0, len(msgs))
	for i := range msgs {
		record, err := parseMessage(&msgs[i])
		if err != nil {
			c.logger.Error("skipping unparseable message", "sid", msgs[i].Sid, "error", err)
			continue
		}
		records = append(records, *record)
	}
	c.logger.Info("extracted account history", "count", len(records))
	if len(records) == 0 {
		c.logger.Error("no messages extracted")
		c.metrics.ObserveOperation("extract_history", "empty")
		return 0, ErrNoMessages
	}
	if err := c.writeSnapshot(filename, sms.NewExtract(records)); err != nil {
		c.logger.Error("failed to save snapshot", "file", filename, "error", err)
		c.metrics.ObserveOperation("extract_history", "write_error")
		return len(records), err
	}
	c.metrics.ObserveOperation("extract_history", "ok")
	return len(records), nil
}

// parseMessage converts a provider message into a validated MessageRecord.
func parseMessage(msg *twilioclient.Message) (*sms.MessageRecord, error) {
	return sms.NewMessageRecord(sms.RecordParams{
		SID:          msg.Sid,
		Status:       msg.Status,
		FromNumber:   msg.From,
		ToNumber:     msg.To,
		Body:         msg.Body,
		DateCreated:  msg.DateCreated.Time,
		DateSent:     msg.DateSent.Time,
		DateUpdated:  msg.DateUpdated.Time,
		Direction:    msg.Direction,
		ErrorCode:    msg.ErrorCode,
		ErrorMessage: msg.ErrorMessage,
		NumMedia:     msg.NumMedia,
		NumSegments:  msg.NumSegments,
		Price:        msg.PriceValue(),
		PriceUnit:    msg.PriceUnit,
	})
}
