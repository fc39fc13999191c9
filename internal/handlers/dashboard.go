package handlers

import (
	"net/http"

	"github.com/AnshRaj112/crm-backend/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	*Responder
}

func NewDashboardHandler(dashboard *services.DashboardService, rs *Responder) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, Responder: rs}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", summary)
}

func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	recent, err := h.dashboard.Recent(r.Context(), caller(r).UserID, queryInt(r, "limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", recent)
}

func (h *DashboardHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.dashboard.Timeline(r.Context(), caller(r).UserID, int(queryInt(r, "days")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, timeline.Message, timeline.Days)
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboard.Metrics(r.Context(), caller(r).UserID, r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", metrics)
}

// QuickStats bypasses the cache with ?refresh=true.
func (h *DashboardHandler) QuickStats(w http.ResponseWriter, r *http.Request) {
	id := caller(r).UserID
	if refresh := queryBool(r, "refresh"); refresh != nil && *refresh {
		if err := h.dashboard.InvalidateQuickStats(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	stats, err := h.dashboard.QuickStats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}

func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.dashboard.Search(r.Context(), caller(r).UserID, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", results)
}
