package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/services"
)

type contactRequest struct {
	services.ContactFields
	LastContacted *flexTime `json:"lastContacted"`
}

func (c contactRequest) fields() services.ContactFields {
	f := c.ContactFields
	f.LastContacted = c.LastContacted.ptr()
	return f
}

type batchContactItem struct {
	services.ContactSyncItem
	LastContacted *flexTime `json:"lastContacted"`
}

type BatchContactsRequest struct {
	Contacts []batchContactItem `json:"contacts" validate:"required,min=1"`
}

type ContactHandler struct {
	contacts *services.ContactService
	*Responder
}

func NewContactHandler(contacts *services.ContactService, rs *Responder) *ContactHandler {
	return &ContactHandler{contacts: contacts, Responder: rs}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.contacts.List(r.Context(), caller(r).UserID, services.ContactListParams{
		Search:   q.Get("search"),
		Company:  q.Get("company"),
		Tag:      q.Get("tag"),
		Source:   q.Get("source"),
		Favorite: queryBool(r, "isFavorite"),
		Sort:     q.Get("sort"),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.Get(r.Context(), caller(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", contact)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	contact, err := h.contacts.Create(r.Context(), caller(r).UserID, req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Contact created successfully", contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	contact, err := h.contacts.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Contact updated successfully", contact)
}

func (h *ContactHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.ToggleFavorite(r.Context(), caller(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Favorite status updated", contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.SoftDelete(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Contact deleted successfully", nil)
}

func (h *ContactHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchContactsRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]services.ContactSyncItem, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		item := c.ContactSyncItem
		item.LastContacted = c.LastContacted.ptr()
		items = append(items, item)
	}
	report, err := h.contacts.BatchSync(r.Context(), caller(r).UserID, items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Batch sync completed", report)
}

func (h *ContactHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contacts.Stats(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}

func (h *ContactHandler) TagStats(w http.ResponseWriter, r *http.Request) {
	tags, err := h.contacts.TagStats(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", tags)
}

func (h *ContactHandler) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.contacts.Companies(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", companies)
}

func (h *ContactHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.contacts.Tags(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", tags)
}

// Export streams every live contact as CSV, or as XLSX with
// ?format=xlsx.
func (h *ContactHandler) Export(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.All(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	stamp := time.Now().UTC().Format("20060102")
	var (
		body        []byte
		contentType string
		filename    string
	)
	if strings.EqualFold(r.URL.Query().Get("format"), "xlsx") {
		body, err = services.ContactsXLSX(contacts)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "contacts-" + stamp + ".xlsx"
	} else {
		body, err = services.ContactsCSV(contacts)
		contentType = "text/csv"
		filename = "contacts-" + stamp + ".csv"
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
