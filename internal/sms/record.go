// Package sms holds the validated message model and the body sanitization
// rules applied to every provider record before it is stored.
package sms

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MessageSIDLen is the fixed length of every Twilio resource identifier.
	MessageSIDLen = 34
	// messageSIDPrefix marks SMS message resources.
	messageSIDPrefix = "SM"
	// RedactedBody is the sentinel a redacted message body is set to.
	RedactedBody = ""
	// TimeLayout is the serialization form of every timestamp in snapshots.
	TimeLayout = "2006-01-02 15:04:05"
)

// ErrInvalidRecord wraps all record construction failures.
var ErrInvalidRecord = errors.New("sms: invalid message record")

// ValidMessageSID checks the length and prefix of an SMS message sid.
func ValidMessageSID(sid string) bool {
	return len(sid) == MessageSIDLen && strings.HasPrefix(sid, messageSIDPrefix)
}

// UTCTime serializes as "YYYY-MM-DD HH:MM:SS" in UTC.
type UTCTime struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t UTCTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *UTCTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("sms: parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// RecordParams carries the raw provider values for one message. Body is the
// unsanitized provider text; NewMessageRecord owns sanitization.
type RecordParams struct {
	SID          string
	Status       string
	FromNumber   string
	ToNumber     string
	Body         string
	DateCreated  time.Time
	DateSent     time.Time
	DateUpdated  time.Time
	Direction    string
	ErrorCode    *int
	ErrorMessage *string
	NumMedia     string
	NumSegments  string
	Price        *float64
	PriceUnit    string
}

// MessageRecord is the validated, immutable representation of one provider
// message. Body always holds the sanitized form; EmojiCount and IsRedacted
// are derived once at construction.
type MessageRecord struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	FromNumber   string  `json:"from_number"`
	ToNumber     string  `json:"to_number"`
	Body         string  `json:"body"`
	DateCreated  UTCTime `json:"date_created"`
	DateSent     UTCTime `json:"date_sent"`
	DateUpdated  UTCTime `json:"date_updated"`
	Direction    string  `json:"direction"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	NumMedia     string  `json:"num_media"`
	NumSegments  string  `json:"num_segments"`
	Price        float64 `json:"price"`
	PriceUnit    string  `json:"price_unit"`
	EmojiCount   int     `json:"emoji_count"`
	IsRedacted   bool    `json:"is_redacted"`
}

// NewMessageRecord validates the raw values and builds the immutable record.
// Every failing field is reported; raw provider text never escapes: the
// stored body is always the sanitized form.
func NewMessageRecord(p RecordParams) (*MessageRecord, error) {
	var problems []string
	if !ValidMessageSID(p.SID) {
		problems = append(problems, fmt.Sprintf("sid: invalid format %q", p.SID))
	}
	if p.DateCreated.IsZero() {
		problems = append(problems, "date_created: missing")
	}
	if p.DateSent.IsZero() {
		problems = append(problems, "date_sent: missing")
	}
	if p.DateUpdated.IsZero() {
		problems = append(problems, "date_updated: missing")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}

	// price absent means 0.0; the provider does not distinguish free from unknown
	price := 0.0
	if p.Price != nil {
		price = *p.Price
	}

	body := SanitizeBody(p.Body)
	return &MessageRecord{
		SID:          p.SID,
		Status:       strings.TrimSpace(p.Status),
		FromNumber:   strings.TrimSpace(p.FromNumber),
		ToNumber:     strings.TrimSpace(p.ToNumber),
		Body:         body,
		DateCreated:  UTCTime{p.DateCreated.UTC()},
		DateSent:     UTCTime{p.DateSent.UTC()},
		DateUpdated:  UTCTime{p.DateUpdated.UTC()},
		Direction:    strings.TrimSpace(p.Direction),
		ErrorCode:    p.ErrorCode,
		ErrorMessage: p.ErrorMessage,
		NumMedia:     strings.TrimSpace(p.NumMedia),
		NumSegments:  strings.TrimSpace(p.NumSegments),
		Price:        price,
		PriceUnit:    strings.TrimSpace(p.PriceUnit),
		EmojiCount:   CountEmojiTokens(body),
		IsRedacted:   body == RedactedBody,
	}, nil
}
