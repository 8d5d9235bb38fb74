package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/domain"
	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 100
	// maxAuditPage keeps (page-1)*size inside an int32 offset.
	maxAuditPage         = math.MaxInt32 / maxAuditPageSize
	auditStatsWindow     = 24 * time.Hour
)

type AdminAuditHandler struct {
	Auditor *service.Auditor
}

// HandleList godoc
//
//	@Summary		List audit events
//	@Description	Pages through audit events, newest first. Requires 'admin:read' scope.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page		query		int								false	"Page number, from 1"	default(1)
//	@Param			size		query		int								false	"Page size, at most 100"	default(50)
//	@Param			user_id		query		string							false	"Filter by user"
//	@Param			event_type	query		string							false	"Filter by event type"
//	@Param			status		query		string							false	"Filter by status"	Enums(success, failure)
//	@Param			since		query		string							false	"RFC3339 lower bound"
//	@Success		200			{object}	authsdk.ListAuditEventsResponse	"events, page, size, total"
//	@Failure		400			{object}	authsdk.ErrorResponse			"Bad query parameter"
//	@Failure		401			{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403			{object}	authsdk.ErrorResponse			"Insufficient scope"
//	@Router			/v1/admin/audit/events [get].
func (h *AdminAuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	page, ok := queryInt(q.Get("page"), 1)
	if !ok || page < 1 || page > maxAuditPage {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "page must be between 1 and "+strconv.Itoa(maxAuditPage)).WriteError(w)
		return
	}
	size, ok := queryInt(q.Get("size"), defaultAuditPageSize)
	if !ok || size < 1 {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "size must be a positive integer").WriteError(w)
		return
	}
	size = min(size, maxAuditPageSize)

	f := domain.AuditFilter{
		UserID:    q.Get("user_id"),
		EventType: q.Get("event_type"),
		Status:    q.Get("status"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "since must be RFC3339").WriteError(w)
			return
		}
		f.Since = since
	}

	events, total, err := h.Auditor.List(ctx, f)
	if err != nil {
		log.Error("list audit events failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	resp := authsdk.ListAuditEventsResponse{
		Events: make([]authsdk.AuditEvent, 0, len(events)),
		Page:   page,
		Size:   size,
		Total:  total,
	}
	for _, e := range events {
		resp.Events = append(resp.Events, authsdk.AuditEvent{
			ID:           e.ID,
			UserID:       e.UserID,
			EventType:    e.EventType,
			Action:       e.Action,
			EventData:    e.EventData,
			Status:       e.Status,
			ErrorMessage: e.ErrorMessage,
			DurationMS:   e.DurationMS,
			RequestID:    e.RequestID,
			IPAddress:    e.IPAddress,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleStats godoc
//
//	@Summary		Audit statistics
//	@Description	Counts audit events of the last 24 hours by type and by status. Requires 'admin:read' scope.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.AuditStatsResponse	"since, total, by_type, by_status"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse		"Insufficient scope"
//	@Router			/v1/admin/audit/stats [get].
func (h *AdminAuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, err := h.Auditor.Stats(ctx, auditStatsWindow)
	if err != nil {
		slogx.FromContext(ctx).Error("audit stats failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuditStatsResponse{
		Since:    st.Since.UTC().Format(time.RFC3339),
		Total:    st.Total,
		ByType:   st.ByType,
		ByStatus: st.ByStatus,
	})
}

func queryInt(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
