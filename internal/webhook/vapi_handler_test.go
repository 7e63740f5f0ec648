package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"callrecovery/internal/accounts"
	"callrecovery/internal/calls"
	"callrecovery/internal/dedupe"
	"callrecovery/internal/normalize"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endOfCall = `{"message":{"type":"end-of-call-report","call":{
	"id": "call_1",
	"phoneNumberId": "pn_shop",
	"customer": {"number": "+15551234567"},
	"startedAt": "2024-05-01T10:00:00Z",
	"endedAt": "2024-05-01T10:00:42Z",
	"transcript": "customer: Hi, I'm John, how much for a full detail on my 2021 Tesla Model 3?",
	"analysis": {"summary": "Pricing question for a full detail."}
}}}`

type recordingNotifier struct {
	mu    sync.Mutex
	calls []calls.Record
}

func (n *recordingNotifier) Notify(ctx context.Context, a accounts.Account, r calls.Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, r)
}

type fixture struct {
	handler  *VapiHandler
	calls    *calls.MemoryRepo
	notifier *recordingNotifier
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		calls:    calls.NewMemoryRepo(),
		notifier: &recordingNotifier{},
	}
	seq := 0
	f.handler = &VapiHandler{
		Accounts: accounts.NewMemoryRepo(
			accounts.Account{ID: "user-shop", Email: "owner@shop.test", VapiPhoneNumber: "pn_shop"},
			accounts.Account{ID: "user-other", Email: "other@shop.test", VapiPhoneNumber: "pn_other"},
		),
		Calls:      f.calls,
		Normalizer: normalize.New(normalize.DefaultHeuristics()),
		Notifier:   f.notifier,
		Now:        func() time.Time { return time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return "rec-" + strconv.Itoa(seq)
		},
	}
	f.router = gin.New()
	f.router.POST("/webhooks/vapi", f.handler.Handle)
	return f
}

func (f *fixture) post(t *testing.T, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestVapiWebhook_StoresEndOfCallReport(t *testing.T) {
	f := newFixture(t)

	rec, out := f.post(t, endOfCall, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "rec-1", out["callId"])
	assert.Equal(t, "user-shop", out["userId"])

	rows := f.calls.All()
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "user-shop", r.UserID)
	assert.Equal(t, "call_1", r.ExternalCallID)
	assert.Equal(t, "+15551234567", r.PhoneNumber)
	assert.Equal(t, calls.StatusAIAnswered, r.Status)
	assert.Equal(t, 0, r.ContactedCount)
	require.NotNil(t, r.CallerName)
	assert.Equal(t, "John", *r.CallerName)
	require.NotNil(t, r.Notes)
	assert.Equal(t, "Pricing question for a full detail.", *r.Notes)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC), r.CreatedAt)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "rec-1", f.notifier.calls[0].ID)
}

func TestVapiWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"message":{"type":"status-update","status":"in-progress"}}`,
		`{"message":{"type":"transcript","call":"whatever"}}`,
		`{"message":"status-update"}`,
		`{"message":null}`,
		`{"message":["end-of-call-report"]}`,
		`{}`,
	} {
		rec, out := f.post(t, body, nil)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "Event ignored", out["message"], body)
	}
	assert.Empty(t, f.calls.All())
	assert.Empty(t, f.notifier.calls)
}

func TestVapiWebhook_BadPayloads(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`not json`,
		`{"message":{"type":"end-of-call-report"}}`,
		`{"message":{"type":"end-of-call-report","call":null}}`,
		`{"message":{"type":"end-of-call-report","call":"nope"}}`,
	} {
		rec, out := f.post(t, body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.NotEmpty(t, out["error"], body)
	}
	assert.Empty(t, f.calls.All())
}

func TestVapiWebhook_UnknownPhoneNumberIsRejected(t *testing.T) {
	f := newFixture(t)
	body := strings.Replace(endOfCall, `"pn_shop"`, `"pn_unknown"`, 1)

	rec, out := f.post(t, body, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, out["error"])
	// No silent attribution to some other account.
	assert.Empty(t, f.calls.All())
}

func TestVapiWebhook_PhoneNumberObjectFallback(t *testing.T) {
	f := newFixture(t)
	body := strings.Replace(endOfCall, `"phoneNumberId": "pn_shop",`, `"phoneNumber": {"id": "pn_other", "number": "+15550000000"},`, 1)

	rec, out := f.post(t, body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-other", out["userId"])
}

func TestVapiWebhook_Secret(t *testing.T) {
	f := newFixture(t)
	f.handler.Secret = "s3cret"

	rec, _ := f.post(t, endOfCall, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.post(t, endOfCall, map[string]string{HeaderSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.post(t, endOfCall, map[string]string{HeaderSecret: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.calls.All(), 1)
}

func TestVapiWebhook_InsertFailure(t *testing.T) {
	f := newFixture(t)
	f.calls.FailInsert = errors.New("connection refused")

	rec, out := f.post(t, endOfCall, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out["error"], "connection refused")
	assert.Empty(t, f.notifier.calls)
}

func TestVapiWebhook_RedeliveryWithoutGuardWritesTwoRows(t *testing.T) {
	f := newFixture(t)
	f.post(t, endOfCall, nil)
	f.post(t, endOfCall, nil)
	assert.Len(t, f.calls.All(), 2)
}

func TestVapiWebhook_RedeliveryWithGuardWritesOneRow(t *testing.T) {
	f := newFixture(t)
	f.handler.Guard = dedupe.NewMemoryGuard(time.Hour)

	f.post(t, endOfCall, nil)
	rec, out := f.post(t, endOfCall, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["duplicate"])
	assert.Len(t, f.calls.All(), 1)
	assert.Len(t, f.notifier.calls, 1)
}

func TestVapiWebhook_FailedInsertReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.handler.Guard = dedupe.NewMemoryGuard(time.Hour)
	f.calls.FailInsert = errors.New("timeout")

	rec, _ := f.post(t, endOfCall, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	f.calls.FailInsert = nil
	rec, out := f.post(t, endOfCall, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, out["duplicate"])
	assert.Len(t, f.calls.All(), 1)
}

func TestVapiWebhook_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/vapi", (&VapiHandler{}).Handle)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/vapi", strings.NewReader(endOfCall)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
