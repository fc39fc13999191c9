package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/crm-backend/internal/handlers"
	"github.com/AnshRaj112/crm-backend/internal/middleware"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Admin     *handlers.AdminHandler
	Contacts  *handlers.ContactHandler
	Leads     *handlers.LeadHandler
	Tasks     *handlers.TaskHandler
	Dashboard *handlers.DashboardHandler
}

func SetupRoutes(r chi.Router, h Handlers, resolver middleware.CredentialResolver) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"ok"}`))
	})

	// Public auth routes
	r.Post("/api/auth/register", h.Auth.Register)
	r.Post("/api/auth/login", h.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(resolver))

		r.Post("/api/auth/logout", h.Auth.Logout)
		r.Post("/api/auth/refresh-token", h.Auth.RefreshToken)
		r.Get("/api/auth/profile", h.Auth.Profile)
		r.Put("/api/auth/profile", h.Auth.UpdateProfile)
		r.Post("/api/auth/profile/image", h.Auth.UploadProfileImage)
		r.Put("/api/auth/change-password", h.Auth.ChangePassword)
		r.Delete("/api/auth/delete-profile", h.Auth.DeleteProfile)
		r.Get("/api/auth/check-admin", h.Auth.CheckAdmin)
		r.Put("/api/auth/update-last-sync", h.Auth.UpdateLastSync)

		// Addresses
		r.Get("/api/auth/addresses", h.Auth.ListAddresses)
		r.Post("/api/auth/addresses", h.Auth.AddAddress)
		r.Put("/api/auth/addresses/{addressId}", h.Auth.UpdateAddress)
		r.Delete("/api/auth/addresses/{addressId}", h.Auth.DeleteAddress)
		r.Patch("/api/auth/addresses/{addressId}/default", h.Auth.SetDefaultAddress)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/api/auth/users", h.Admin.ListUsers)
			r.Get("/api/auth/users/{id}", h.Admin.GetUser)
			r.Put("/api/auth/users/{id}", h.Admin.UpdateUser)
			r.Delete("/api/auth/users/{id}", h.Admin.DeleteUser)
			r.Patch("/api/auth/users/{id}/toggle-status", h.Admin.ToggleStatus)
			r.Get("/api/auth/stats", h.Admin.Stats)
		})

		r.Route("/api/contacts", func(r chi.Router) {
			r.Get("/", h.Contacts.List)
			r.Post("/", h.Contacts.Create)
			r.Post("/batch", h.Contacts.Batch)
			r.Get("/export", h.Contacts.Export)
			r.Get("/companies", h.Contacts.Companies)
			r.Get("/tags", h.Contacts.Tags)
			r.Get("/stats/count", h.Contacts.Stats)
			r.Get("/stats/tags", h.Contacts.TagStats)
			r.Get("/{id}", h.Contacts.Get)
			r.Put("/{id}", h.Contacts.Update)
			r.Delete("/{id}", h.Contacts.Delete)
			r.Patch("/{id}/favorite", h.Contacts.ToggleFavorite)
		})

		r.Route("/api/leads", func(r chi.Router) {
			r.Get("/", h.Leads.List)
			r.Post("/", h.Leads.Create)
			r.Get("/assigned/me", h.Leads.MyLeads)
			r.Get("/summary/stats", h.Leads.Stats)
			r.Put("/bulk-update", h.Leads.BulkUpdate)
			r.Get("/{id}", h.Leads.Get)
			r.Put("/{id}", h.Leads.Update)
			r.Delete("/{id}", h.Leads.Delete)
			r.Post("/{id}/notes", h.Leads.AddNote)
			r.Patch("/{id}/status", h.Leads.UpdateStatus)
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", h.Tasks.List)
			r.Post("/", h.Tasks.Create)
			r.Patch("/bulk-status", h.Tasks.BulkStatus)
			r.Get("/analytics/today", h.Tasks.Today)
			r.Get("/analytics/overdue", h.Tasks.Overdue)
			r.Get("/analytics/upcoming", h.Tasks.Upcoming)
			r.Get("/analytics/stats", h.Tasks.Stats)
			r.Get("/{id}", h.Tasks.Get)
			r.Put("/{id}", h.Tasks.Update)
			r.Delete("/{id}", h.Tasks.Delete)
		})

		r.Route("/api/dashboard", func(r chi.Router) {
			r.Get("/summary", h.Dashboard.Summary)
			r.Get("/recent", h.Dashboard.Recent)
			r.Get("/timeline", h.Dashboard.Timeline)
			r.Get("/metrics", h.Dashboard.Metrics)
			r.Get("/quick-stats", h.Dashboard.QuickStats)
			r.Get("/search", h.Dashboard.Search)
		})
	})
}
