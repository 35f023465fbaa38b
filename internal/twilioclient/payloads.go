package twilioclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CreateMessageParams describes an outbound SMS send request.
type CreateMessageParams struct {
	To             string
	From           string
	Body           string
	ValidityPeriod int
	Attempt        int
}

func (p CreateMessageParams) validate() error {
	if strings.TrimSpace(p.To) == "" || strings.TrimSpace(p.From) == "" {
		return errors.New("twilioclient: to and from numbers required")
	}
	if p.Body == "" {
		return errors.New("twilioclient: body required")
	}
	return nil
}

// RFC2822Time parses Twilio's RFC 2822 timestamps ("Thu, 24 Aug 2023 05:32:00
// +0000"). A JSON null or empty string leaves the zero value.
type RFC2822Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *RFC2822Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		return fmt.Errorf("twilioclient: parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t RFC2822Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC1123Z) + `"`), nil
}

// Message mirrors the Twilio message resource.
type Message struct {
	Sid          string      `json:"sid"`
	AccountSid   string      `json:"account_sid"`
	To           string      `json:"to"`
	From         string      `json:"from"`
	Body         string      `json:"body"`
	Status       string      `json:"status"`
	Direction    string      `json:"direction"`
	DateCreated  RFC2822Time `json:"date_created"`
	DateSent     RFC2822Time `json:"date_sent"`
	DateUpdated  RFC2822Time `json:"date_updated"`
	NumMedia     string      `json:"num_media"`
	NumSegments  string      `json:"num_segments"`
	ErrorCode    *int        `json:"error_code"`
	ErrorMessage *string     `json:"error_message"`
	Price        *string     `json:"price"`
	PriceUnit    string      `json:"price_unit"`
	APIVersion   string      `json:"api_version"`
	URI          string      `json:"uri"`
}

// PriceValue converts the string-typed price to a float, nil when absent or
// unparseable.
func (m *Message) PriceValue() *float64 {
	if m.Price == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*m.Price), 64)
	if err != nil {
		return nil
	}
	return &v
}

type messagePage struct {
	Messages []Message `json:"messages"`
	PageSize int       `json:"page_size"`
	URI      string    `json:"uri"`
}

// LineTypeIntelligence is the optional carrier block of a v2 lookup response.
type LineTypeIntelligence struct {
	CarrierName string `json:"carrier_name"`
	Type        string `json:"type"`
}

// PhoneNumberLookup mirrors the v2 Lookup phone number resource.
type PhoneNumberLookup struct {
	PhoneNumber          string                `json:"phone_number"`
	NationalFormat       string                `json:"national_format"`
	CountryCode          string                `json:"country_code"`
	Valid                bool                  `json:"valid"`
	ValidationErrors     []string              `json:"validation_errors"`
	LineTypeIntelligence *LineTypeIntelligence `json:"line_type_intelligence"`
}

// CarrierName returns the carrier when line type intelligence is present.
func (l *PhoneNumberLookup) CarrierName() string {
	if l == nil || l.LineTypeIntelligence == nil {
		return ""
	}
	return l.LineTypeIntelligence.CarrierName
}
