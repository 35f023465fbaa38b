// Package twilioclient wraps the Twilio REST endpoints used by the extract
// tooling: the 2010-04-01 Messages resource and the v2 Lookup API.
package twilioclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"
)

const (
	defaultBaseURL       = "https://api.twilio.com"
	defaultLookupBaseURL = "https://lookups.twilio.com"
	defaultUserAgent     = "sms-extract/0.1"
	apiVersion           = "2010-04-01"
)

// Config controls how the Twilio client behaves.
type Config struct {
	AccountSID    string
	AuthToken     string
	BaseURL       string
	LookupBaseURL string
	Timeout       time.Duration
	MaxRetries    int
	Backoff       time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
	UserAgent     string
}

// Client issues authenticated requests against the Twilio REST API.
type Client struct {
	accountSID    string
	authToken     string
	baseURL       string
	lookupBaseURL string
	httpClient    *http.Client
	maxRetries    int
	backoff       time.Duration
	logger        *slog.Logger
	userAgent     string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilioclient: account sid and auth token are required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	lookupBaseURL := strings.TrimSpace(cfg.LookupBaseURL)
	if lookupBaseURL == "" {
		lookupBaseURL = defaultLookupBaseURL
	}
	lookupBaseURL = strings.TrimRight(lookupBaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		accountSID:    cfg.AccountSID,
		authToken:     cfg.AuthToken,
		baseURL:       baseURL,
		lookupBaseURL: lookupBaseURL,
		httpClient:    httpClient,
		maxRetries:    maxRetries,
		backoff:       backoff,
		logger:        logger,
		userAgent:     userAgent,
	}, nil
}

func (c *Client) messagesURL(suffix string) string {
	return fmt.Sprintf("%s/%s/Accounts/%s/Messages%s", c.baseURL, apiVersion, c.accountSID, suffix)
}

// CreateMessage submits a new outbound SMS.
func (c *Client) CreateMessage(ctx context.Context, params CreateMessageParams) (*Message, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("To", params.To)
	form.Set("From", params.From)
	form.Set("Body", params.Body)
	if params.ValidityPeriod > 0 {
		form.Set("ValidityPeriod", strconv.Itoa(params.ValidityPeriod))
	}
	if params.Attempt > 0 {
		form.Set("Attempt", strconv.Itoa(params.Attempt))
	}
	data, _, err := c.invoke(ctx, http.MethodPost, c.messagesURL(".json"), form)
	if err != nil {
		return nil, err
	}
	return decodeMessage(data)
}

// FetchMessage retrieves the current state of one message resource.
func (c *Client) FetchMessage(ctx context.Context, sid string) (*Message, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, errors.New("twilioclient: message sid required")
	}
	data, _, err := c.invoke(ctx, http.MethodGet, c.messagesURL("/"+sid+".json"), nil)
	if err != nil {
		return nil, err
	}
	return decodeMessage(data)
}

// UpdateMessageBody posts a replacement body for an existing message. Twilio
// only accepts the empty string here, which is how bodies are redacted.
func (c *Client) UpdateMessageBody(ctx context.Context, sid, body string) (*Message, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, errors.New("twilioclient: message sid required")
	}
	form := url.Values{}
	form.Set("Body", body)
	data, _, err := c.invoke(ctx, http.MethodPost, c.messagesURL("/"+sid+".json"), form)
	if err != nil {
		return nil, err
	}
	return decodeMessage(data)
}

// DeleteMessage removes a message resource from the account.
func (c *Client) DeleteMessage(ctx context.Context, sid string) (bool, error) {
	if strings.TrimSpace(sid) == "" {
		return false, errors.New("twilioclient: message sid required")
	}
	_, status, err := c.invoke(ctx, http.MethodDelete, c.messagesURL("/"+sid+".json"), nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusNoContent, nil
}

// ListMessages returns the first page of account message history.
func (c *Client) ListMessages(ctx context.Context, pageSize int) ([]Message, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	q := url.Values{}
	q.Set("PageSize", strconv.Itoa(pageSize))
	data, _, err := c.invoke(ctx, http.MethodGet, c.messagesURL(".json?"+q.Encode()), nil)
	if err != nil {
		return nil, err
	}
	var page messagePage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("twilioclient: decode message list: %w", err)
	}
	return page.Messages, nil
}

// LookupPhoneNumber queries the v2 Lookup API with line type intelligence.
func (c *Client) LookupPhoneNumber(ctx context.Context, number string) (*PhoneNumberLookup, error) {
	if strings.TrimSpace(number) == "" {
		return nil, errors.New("twilioclient: phone number required")
	}
	lookupURL := fmt.Sprintf("%s/v2/PhoneNumbers/%s?Fields=line_type_intelligence",
		c.lookupBaseURL, url.PathEscape(number))
	data, _, err := c.invoke(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, err
	}
	var lookup PhoneNumberLookup
	if err := json.Unmarshal(data, &lookup); err != nil {
		return nil, fmt.Errorf("twilioclient: decode lookup: %w", err)
	}
	return &lookup, nil
}

func (c *Client) invoke(ctx context.Context, method, fullURL string, form url.Values) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if form != nil {
			bodyReader = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, 0, fmt.Errorf("twilioclient: build request: %w", err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("User-Agent", c.userAgent)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, 0, fmt.Errorf("twilioclient: http error: %w", err)
			}
			lastErr = err
			c.logRetry(fullURL, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, 0, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, 0, fmt.Errorf("twilioclient: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, resp.StatusCode, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(fullURL, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, 0, sleepErr
			}
			continue
		}
		return nil, resp.StatusCode, apiErr
	}
	if lastErr != nil {
		return nil, 0, lastErr
	}
	return nil, 0, errors.New("twilioclient: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(url string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("twilio retry",
		"url", url,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 && status <= 599 {
		return true
	}
	return false
}

// apiError mirrors Twilio's error envelope.
type apiError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	MoreInfo   string `json:"more_info"`
	Status     int    `json:"status"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		if e.Code != 0 {
			return fmt.Sprintf("twilioclient: status %d code %d: %s", e.HTTPStatus, e.Code, e.Message)
		}
		return fmt.Sprintf("twilioclient: status %d: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("twilioclient: http status %d", e.HTTPStatus)
}

func decodeAPIError(status int, body []byte) error {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &apiError{HTTPStatus: status, Message: strings.TrimSpace(string(body))}
	}
	parsed.HTTPStatus = status
	return &parsed
}

func decodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("twilioclient: decode message: %w", err)
	}
	return &msg, nil
}
