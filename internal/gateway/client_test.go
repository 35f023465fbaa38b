package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smslab/sms-extract/internal/config"
	"github.com/smslab/sms-extract/internal/sms"
	"github.com/smslab/sms-extract/internal/twilioclient"
	"github.com/smslab/sms-extract/pkg/logging"
)

const testSID = "SM00000000000000000000000000000001"

// fakeAPI is a recording test double for the provider collaborator.
type fakeAPI struct {
	calls []string

	lookup    *twilioclient.PhoneNumberLookup
	lookupErr error
	created   *twilioclient.Message
	createErr error
	fetched   *twilioclient.Message
	fetchErr  error
	updated   *twilioclient.Message
	updateErr error
	deleted   bool
	deleteErr error
	listed    []twilioclient.Message
	listErr   error

	lastCreate twilioclient.CreateMessageParams
	lastUpdate string
}

func (f *fakeAPI) CreateMessage(_ context.Context, p twilioclient.CreateMessageParams) (*twilioclient.Message, error) {
	f.calls = append(f.calls, "create")
	f.lastCreate = p
	return f.created, f.createErr
}

func (f *fakeAPI) FetchMessage(_ context.Context, sid string) (*twilioclient.Message, error) {
	f.calls = append(f.calls, "fetch")
	return f.fetched, f.fetchErr
}

func (f *fakeAPI) UpdateMessageBody(_ context.Context, sid, body string) (*twilioclient.Message, error) {
	f.calls = append(f.calls, "update")
	f.lastUpdate = body
	return f.updated, f.updateErr
}

func (f *fakeAPI) DeleteMessage(_ context.Context, sid string) (bool, error) {
	f.calls = append(f.calls, "delete")
	return f.deleted, f.deleteErr
}

func (f *fakeAPI) ListMessages(_ context.Context, pageSize int) ([]twilioclient.Message, error) {
	f.calls = append(f.calls, "list")
	return f.listed, f.listErr
}

func (f *fakeAPI) LookupPhoneNumber(_ context.Context, number string) (*twilioclient.PhoneNumberLookup, error) {
	f.calls = append(f.calls, "lookup")
	return f.lookup, f.lookupErr
}

func testMessage(sid, body string) *twilioclient.Message {
	at := twilioclient.RFC2822Time{Time: time.Date(2023, 8, 24, 5, 32, 3, 0, time.UTC)}
	return &twilioclient.Message{
		Sid:         sid,
		To:          "+13604442000",
		From:        "+13035551000",
		Body:        body,
		Status:      "sent",
		Direction:   "outbound-api",
		DateCreated: at,
		DateSent:    at,
		DateUpdated: at,
		NumMedia:    "0",
		NumSegments: "1",
		PriceUnit:   "USD",
	}
}

func newTestGateway(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	cfg := &config.Config{
		Name:        "sms-extract",
		Version:     "1.2.3",
		Environment: config.EnvTest,
		AccountSID:  "AC00000000000000000000000000000001",
		AuthToken:   "0123456789abcdef0123456789abcdef",
		ToNumber:    "+13604442000",
		FromNumber:  "+13035551000",
		DataDir:     t.TempDir(),
	}
	return New(cfg, api, logging.Discard(), nil)
}

func validLookup() *twilioclient.PhoneNumberLookup {
	return &twilioclient.PhoneNumberLookup{
		PhoneNumber:          "+13604442000",
		Valid:                true,
		LineTypeIntelligence: &twilioclient.LineTypeIntelligence{CarrierName: "T-Mobile", Type: "mobile"},
	}
}

func TestSendTextSuccess(t *testing.T) {
	api := &fakeAPI{lookup: validLookup(), created: testMessage(testSID, "hi")}
	gw := newTestGateway(t, api)

	sid, err := gw.SendText(context.Background(), "+13604442000", "hi there")
	require.NoError(t, err)
	assert.Equal(t, testSID, sid)
	assert.Equal(t, []string{"lookup", "create"}, api.calls)
	assert.Equal(t, "+13035551000", api.lastCreate.From)
	assert.Equal(t, 5, api.lastCreate.ValidityPeriod)
}

func TestSendTextUnverifiedDoesNotSend(t *testing.T) {
	api := &fakeAPI{lookup: &twilioclient.PhoneNumberLookup{Valid: false}}
	gw := newTestGateway(t, api)

	sid, err := gw.SendText(context.Background(), "+11111111111", "hi")
	require.ErrorIs(t, err, ErrUnverifiedNumber)
	assert.Empty(t, sid)
	assert.Equal(t, []string{"lookup"}, api.calls, "create must not be attempted")
}

func TestSendTextTruncatesLongPayload(t *testing.T) {
	api := &fakeAPI{lookup: validLookup(), created: testMessage(testSID, "x")}
	gw := newTestGateway(t, api)

	payload := strings.Repeat("é", MaxBodyLen+200)
	_, err := gw.SendText(context.Background(), "+13604442000", payload)
	require.NoError(t, err)
	assert.Equal(t, MaxBodyLen, len([]rune(api.lastCreate.Body)))
}

func TestLocalSIDGateSkipsNetwork(t *testing.T) {
	badSIDs := []string{
		"",
		"SM123",                                // wrong length
		"AC00000000000000000000000000000001",   // wrong prefix
		"SM000000000000000000000000000000012",  // too long
	}
	for _, sid := range badSIDs {
		api := &fakeAPI{}
		gw := newTestGateway(t, api)

		_, err := gw.ExtractSingleMessage(context.Background(), sid, "out.json")
		require.ErrorIs(t, err, ErrInvalidSID)
		assert.False(t, gw.RedactMessageBody(context.Background(), sid))
		assert.False(t, gw.DeleteMessage(context.Background(), sid))
		assert.Empty(t, api.calls, "sid %q must short-circuit before any provider call", sid)
	}
}

func TestExtractSingleMessageWritesSnapshot(t *testing.T) {
	api := &fakeAPI{fetched: testMessage(testSID, "hello \U0001F44D world")}
	gw := newTestGateway(t, api)

	record, err := gw.ExtractSingleMessage(context.Background(), testSID, "before_redaction.json")
	require.NoError(t, err)
	assert.Equal(t, "hello {thumbs_up} world", record.Body)
	assert.Equal(t, 1, record.EmojiCount)
	assert.False(t, record.IsRedacted)

	data, err := os.ReadFile(filepath.Join(gw.cfg.DataDir, "before_redaction.json"))
	require.NoError(t, err)

	var snapshot struct {
		ExtractDate string            `json:"extract_date"`
		Count       int               `json:"count"`
		Records     []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, 1, snapshot.Count)
	require.Len(t, snapshot.Records, 1)

	_, err = time.Parse(sms.TimeLayout, snapshot.ExtractDate)
	assert.NoError(t, err, "extract_date must use the snapshot layout")

	var record0 map[string]any
	require.NoError(t, json.Unmarshal(snapshot.Records[0], &record0))
	assert.Equal(t, testSID, record0["sid"])
	assert.Equal(t, "2023-08-24 05:32:03", record0["date_sent"])
}

func TestExtractSingleMessageSnapshotOverwrites(t *testing.T) {
	api := &fakeAPI{fetched: testMessage(testSID, "first")}
	gw := newTestGateway(t, api)

	_, err := gw.ExtractSingleMessage(context.Background(), testSID, "extract.json")
	require.NoError(t, err)

	api.fetched = testMessage(testSID, "second")
	_, err = gw.ExtractSingleMessage(context.Background(), testSID, "extract.json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(gw.cfg.DataDir, "extract.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "second")
	assert.NotContains(t, string(data), "first")
}

func TestRedactMessageBody(t *testing.T) {
	t.Run("success requires sentinel body", func(t *testing.T) {
		api := &fakeAPI{updated: testMessage(testSID, "")}
		gw := newTestGateway(t, api)
		assert.True(t, gw.RedactMessageBody(context.Background(), testSID))
		assert.Equal(t, sms.RedactedBody, api.lastUpdate)
	})
	t.Run("non-empty returned body is a failure", func(t *testing.T) {
		api := &fakeAPI{updated: testMessage(testSID, "still here")}
		gw := newTestGateway(t, api)
		assert.False(t, gw.RedactMessageBody(context.Background(), testSID))
	})
	t.Run("provider error is contained", func(t *testing.T) {
		api := &fakeAPI{updateErr: errors.New("boom")}
		gw := newTestGateway(t, api)
		assert.False(t, gw.RedactMessageBody(context.Background(), testSID))
	})
}

func TestRedactionRoundTrip(t *testing.T) {
	// After a successful redaction the re-fetched record reports is_redacted.
	api := &fakeAPI{
		updated: testMessage(testSID, ""),
		fetched: testMessage(testSID, ""),
	}
	gw := newTestGateway(t, api)

	require.True(t, gw.RedactMessageBody(context.Background(), testSID))
	record, err := gw.ExtractSingleMessage(context.Background(), testSID, "after_redaction.json")
	require.NoError(t, err)
	assert.True(t, record.IsRedacted)
	assert.Equal(t, 0, record.EmojiCount)
}

func TestDeleteMessage(t *testing.T) {
	api := &fakeAPI{deleted: true}
	gw := newTestGateway(t, api)
	assert.True(t, gw.DeleteMessage(context.Background(), testSID))

	api = &fakeAPI{deleteErr: errors.New("boom")}
	gw = newTestGateway(t, api)
	assert.False(t, gw.DeleteMessage(context.Background(), testSID))
}

func TestExtractAllMessagesSkipsParseFailures(t *testing.T) {
	good1 := testMessage(testSID, "one")
	bad := testMessage("MM_BAD_SID", "two") // rejected at record construction
	good2 := testMessage("SM00000000000000000000000000000003", "three")
	api := &fakeAPI{listed: []twilioclient.Message{*good1, *bad, *good2}}
	gw := newTestGateway(t, api)

	count, err := gw.ExtractAllMessages(context.Background(), "text_message_history.json")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(filepath.Join(gw.cfg.DataDir, "text_message_history.json"))
	require.NoError(t, err)

	var snapshot sms.MessageExtract
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, 2, snapshot.Count)
	require.Len(t, snapshot.Records, 2)
	// provider response order is preserved
	assert.Equal(t, testSID, snapshot.Records[0].SID)
	assert.Equal(t, "SM00000000000000000000000000000003", snapshot.Records[1].SID)
}

func TestExtractAllMessagesEmptyAccount(t *testing.T) {
	api := &fakeAPI{listed: nil}
	gw := newTestGateway(t, api)

	count, err := gw.ExtractAllMessages(context.Background(), "history.json")
	require.ErrorIs(t, err, ErrNoMessages)
	assert.Zero(t, count)

	_, statErr := os.Stat(filepath.Join(gw.cfg.DataDir, "history.json"))
	assert.True(t, os.IsNotExist(statErr), "empty extract must not write a snapshot")
}

func TestVerifyPhoneNumber(t *testing.T) {
	api := &fakeAPI{lookup: validLookup()}
	gw := newTestGateway(t, api)
	assert.True(t, gw.VerifyPhoneNumber(context.Background(), "+13604442000"))

	api = &fakeAPI{lookupErr: errors.New("lookup down")}
	gw = newTestGateway(t, api)
	assert.False(t, gw.VerifyPhoneNumber(context.Background(), "+13604442000"))
}

func TestComposeRandomMessageIdentity(t *testing.T) {
	gw := newTestGateway(t, &fakeAPI{})
	payload := gw.ComposeRandomMessage()
	assert.True(t, strings.HasPrefix(payload, "sms-extract (v1.2.3) TEST "), "payload %q", payload)
}
