package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves plan-gated reports
type ReportHandler struct {
	BaseHandler
	usage UsageQuerier
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(usage UsageQuerier) *ReportHandler {
	return &ReportHandler{usage: usage}
}

// UsageExport handles GET /reports/usage-export. The default is a CSV
// attachment; ?format=json returns the same rows in the envelope.
func (h *ReportHandler) UsageExport(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	info, err := h.usage.GetSubscriptionInfo(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	kinds := make([]string, 0, len(info.Usage))
	for k := range info.Usage {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	switch c.DefaultQuery("format", "csv") {
	case "json":
		h.Success(c, info)
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"tenant_id", "plan", "period_start", "period_end", "resource", "current", "limit", "remaining", "percentage"})
		for _, k := range kinds {
			u := info.Usage[k]
			limit := strconv.FormatInt(u.Limit, 10)
			remaining := strconv.FormatInt(u.Remaining, 10)
			if u.Unlimited {
				limit, remaining = "unlimited", "unlimited"
			}
			_ = w.Write([]string{
				tenantID,
				info.PlanID.String(),
				info.PeriodStart.Format("2006-01-02"),
				info.PeriodEnd.Format("2006-01-02"),
				k,
				strconv.FormatInt(u.Current, 10),
				limit,
				remaining,
				strconv.Itoa(u.Percentage),
			})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			h.HandleError(c, err)
			return
		}

		filename := fmt.Sprintf("usage-%s-%s.csv", tenantID, info.PeriodStart.Format("2006-01"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		h.BadRequest(c, "Unsupported format: "+c.Query("format"))
	}
}
