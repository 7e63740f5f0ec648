package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"callrecovery/internal/accounts"
	"callrecovery/internal/auth"
	"callrecovery/internal/calls"
	"callrecovery/internal/reporting"
	"callrecovery/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handlers groups the dashboard read API.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Every handler is scoped to the account id injected by auth.RequireAccessToken.
type Handlers struct {
	Accounts accounts.Repository
	Calls    calls.Repository
	Reports  *reporting.Service

	Now func() time.Time
}

func (h Handlers) Me(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	if h.Accounts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "accounts not configured"})
		return
	}
	a, err := h.Accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		logger.FromGin(c).Error("account lookup failed", "user_id", accountID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "account lookup failed"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListCalls returns the newest calls. ?limit= defaults to 50, capped at 200.
func (h Handlers) ListCalls(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	rows, err := h.Calls.ListRecent(c.Request.Context(), accountID, limit)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "user_id", accountID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list calls failed"})
		return
	}
	if rows == nil {
		rows = []calls.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}

// Summary aggregates a range: ?from=&to= (RFC3339) or ?date=YYYY-MM-DD, default today (UTC).
func (h Handlers) Summary(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{AccountID: accountID, Range: rng})
	if err != nil {
		writeReportError(c, accountID, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HotLeads lists high-intent calls that have not booked, over the same range as Summary.
func (h Handlers) HotLeads(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	rows, err := h.Reports.HotLeads(c.Request.Context(), reporting.CallsSummaryRequest{AccountID: accountID, Range: rng})
	if err != nil {
		writeReportError(c, accountID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows, "range": rng})
}

func (h Handlers) parseRange(c *gin.Context) (reporting.TimeRange, bool) {
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		f, err1 := time.Parse(time.RFC3339, from)
		t, err2 := time.Parse(time.RFC3339, to)
		if err1 != nil || err2 != nil || !t.After(f) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC3339 with to after from"})
			return reporting.TimeRange{}, false
		}
		return reporting.TimeRange{From: f, To: t}, true
	}
	if d := c.Query("date"); d != "" {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return reporting.TimeRange{}, false
		}
		return reporting.Day(day), true
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return reporting.Day(now().UTC()), true
}

func writeReportError(c *gin.Context, accountID string, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.FromGin(c).Error("report failed", "user_id", accountID, "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

func requireAccount(c *gin.Context) (string, bool) {
	id, err := auth.AccountID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account required"})
		return "", false
	}
	return id, true
}
