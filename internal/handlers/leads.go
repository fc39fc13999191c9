package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/services"
)

type leadRequest struct {
	services.LeadFields
	NextFollowUp *flexTime `json:"nextFollowUp"`
}

func (l leadRequest) fields() services.LeadFields {
	f := l.LeadFields
	f.NextFollowUp = l.NextFollowUp.ptr()
	return f
}

type LeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

type LeadNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

type LeadBulkRequest struct {
	LeadIDs []string               `json:"leadIds" validate:"required,min=1"`
	Updates services.LeadBulkInput `json:"updates"`
}

type LeadHandler struct {
	leads *services.LeadService
	*Responder
}

func NewLeadHandler(leads *services.LeadService, rs *Responder) *LeadHandler {
	return &LeadHandler{leads: leads, Responder: rs}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "startDate")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryTime(r, "endDate")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := h.leads.List(r.Context(), services.LeadListParams{
		Status:     q.Get("status"),
		Source:     q.Get("source"),
		Priority:   q.Get("priority"),
		AssignedTo: q.Get("assignedTo"),
		Search:     q.Get("search"),
		From:       from,
		To:         to,
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", lead)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	lead, err := h.leads.Create(r.Context(), caller(r).UserID, req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Lead created successfully", lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	lead, err := h.leads.Update(r.Context(), chi.URLParam(r, "id"), req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Lead updated successfully", lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Lead deleted successfully", nil)
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req LeadStatusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	lead, err := h.leads.UpdateStatus(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Lead status updated successfully", lead)
}

func (h *LeadHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req LeadNoteRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	lead, err := h.leads.AddNote(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Note added successfully", lead)
}

func (h *LeadHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req LeadBulkRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.leads.BulkUpdate(r.Context(), req.LeadIDs, req.Updates)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Leads updated successfully", res)
}

func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leads.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}

func (h *LeadHandler) MyLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.MyLeads(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", leads)
}
