package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/services"
)

type taskRequest struct {
	services.TaskFields
	DueDate      *flexTime    `json:"dueDate"`
	ReminderDate optionalTime `json:"reminderDate"`
}

func (t taskRequest) fields() services.TaskFields {
	f := t.TaskFields
	f.DueDate = t.DueDate.ptr()
	f.ReminderDate = t.ReminderDate.value.ptr()
	f.ClearReminder = t.ReminderDate.present && f.ReminderDate == nil
	return f
}

type TaskBulkStatusRequest struct {
	TaskIDs []string `json:"taskIds" validate:"required,min=1"`
	Status  string   `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

type TaskHandler struct {
	tasks *services.TaskService
	*Responder
}

func NewTaskHandler(tasks *services.TaskService, rs *Responder) *TaskHandler {
	return &TaskHandler{tasks: tasks, Responder: rs}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.tasks.List(r.Context(), caller(r).UserID, services.TaskListParams{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), caller(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", task)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.tasks.Create(r.Context(), caller(r).UserID, req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.tasks.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *TaskHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req TaskBulkStatusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.tasks.BulkStatus(r.Context(), caller(r).UserID, req.TaskIDs, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Tasks updated successfully", res)
}

func (h *TaskHandler) Today(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Today(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Overdue(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Upcoming(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}
