package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"callrecovery/internal/accounts"
	"callrecovery/internal/calls"
	"callrecovery/internal/dedupe"
	"callrecovery/internal/metrics"
	"callrecovery/internal/normalize"
	"callrecovery/internal/vapi"
	"callrecovery/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderSecret carries the shared secret configured on the Vapi assistant.
const HeaderSecret = "X-Vapi-Secret"

// Notifier is the best-effort owner notification hook.
type Notifier interface {
	Notify(ctx context.Context, a accounts.Account, r calls.Record)
}

// Recorder receives delivery results. *metrics.Metrics satisfies it.
type Recorder interface {
	WebhookDelivery(event, result string)
	CallStored(intent, outcome string, confidence float64)
}

// VapiHandler turns end-of-call reports into call rows.
//
// Tenant scoping:
//   - the owning account is resolved from the vendor phone-number id on the call.
//     There is no fallback; an unknown number is rejected.
//
// Guard is optional. Without it every delivery of the same report writes a row.
type VapiHandler struct {
	Accounts   accounts.Repository
	Calls      calls.Repository
	Normalizer *normalize.Normalizer
	Notifier   Notifier
	Guard      dedupe.Guard
	Metrics    Recorder

	// Secret, when set, must match the X-Vapi-Secret header.
	Secret string

	Now   func() time.Time
	NewID func() string
}

func (h *VapiHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Accounts == nil || h.Calls == nil || h.Normalizer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderSecret)), []byte(h.Secret)) != 1 {
		log.Warn("vapi webhook secret mismatch")
		h.delivery("", metrics.ResultRejected)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, "", http.StatusInternalServerError, metrics.ResultBadPayload, err)
		return
	}
	var wh vapi.Webhook
	if err := json.Unmarshal(body, &wh); err != nil {
		log.Warn("vapi webhook parse failed", "err", err)
		h.fail(c, "", http.StatusInternalServerError, metrics.ResultBadPayload, err)
		return
	}

	event := wh.Message.Type.String()
	if !wh.Message.IsEndOfCallReport() {
		log.Info("vapi event ignored", "type", event)
		h.delivery(event, metrics.ResultIgnored)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	call, err := wh.Message.DecodeCall()
	if err != nil {
		log.Warn("vapi end-of-call report without call", "err", err)
		h.fail(c, event, http.StatusInternalServerError, metrics.ResultBadPayload, err)
		return
	}

	phoneID := call.VendorPhoneNumberID()
	account, err := h.Accounts.FindByVapiPhoneNumber(c.Request.Context(), phoneID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			log.Warn("no account for vapi phone number", "phone_number_id", phoneID, "call_id", call.ID.String())
			h.fail(c, event, http.StatusNotFound, metrics.ResultNoAccount, errors.New("no account for phone number"))
			return
		}
		log.Error("account lookup failed", "phone_number_id", phoneID, "err", err)
		h.fail(c, event, http.StatusInternalServerError, metrics.ResultError, err)
		return
	}

	rec := h.Normalizer.Normalize(call)
	rec.ID = h.newID()
	rec.UserID = account.ID
	rec.CreatedAt = h.now().UTC()

	claimed := false
	if h.Guard != nil && rec.ExternalCallID != "" {
		ok, err := h.Guard.Claim(c.Request.Context(), rec.ExternalCallID)
		switch {
		case err != nil:
			// Claim errors fail open; the row is still written.
			log.Warn("dedupe claim failed", "vapi_call_id", rec.ExternalCallID, "err", err)
		case !ok:
			log.Info("duplicate vapi report", "vapi_call_id", rec.ExternalCallID, "user_id", account.ID)
			h.delivery(event, metrics.ResultDuplicate)
			c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
			return
		default:
			claimed = true
		}
	}

	saved, err := h.Calls.Insert(c.Request.Context(), rec)
	if err != nil {
		log.Error("call insert failed", "vapi_call_id", rec.ExternalCallID, "user_id", account.ID, "err", err)
		if claimed {
			if rerr := h.Guard.Release(context.WithoutCancel(c.Request.Context()), rec.ExternalCallID); rerr != nil {
				log.Warn("dedupe release failed", "vapi_call_id", rec.ExternalCallID, "err", rerr)
			}
		}
		h.fail(c, event, http.StatusInternalServerError, metrics.ResultError, err)
		return
	}

	log.Info("call stored",
		"call_id", saved.ID,
		"user_id", saved.UserID,
		"intent", saved.Intent,
		"outcome", saved.Outcome,
		"confidence", saved.Confidence,
	)
	h.delivery(event, metrics.ResultStored)
	if h.Metrics != nil {
		h.Metrics.CallStored(string(saved.Intent), string(saved.Outcome), saved.Confidence)
	}
	if h.Notifier != nil {
		h.Notifier.Notify(logger.With(c.Request.Context(), log), account, saved)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "callId": saved.ID, "userId": account.ID})
}

func (h *VapiHandler) fail(c *gin.Context, event string, status int, result string, err error) {
	h.delivery(event, result)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *VapiHandler) delivery(event, result string) {
	if h.Metrics != nil {
		h.Metrics.WebhookDelivery(event, result)
	}
}

func (h *VapiHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *VapiHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}
