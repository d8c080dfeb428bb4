package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/orbit-portal/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware портала.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/me", h.Me)
		r.Get("/staff", h.ListStaff)
		r.Put("/profiles/{userID}", h.PutProfile)
		r.Get("/dashboard", h.Dashboard)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetOrder)
				r.Patch("/status", h.ChangeStatus)
				r.Post("/viewed", h.MarkViewed)
				r.Get("/updates", h.ListUpdates)

				r.Get("/tasks", h.ListTasks)
				r.Post("/tasks", h.AddTask)
				r.Patch("/tasks/{taskID}", h.SetTaskStatus)

				r.Get("/comments", h.ListComments)
				r.Post("/comments", h.AddComment)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/export", h.ExportNotifications)
			r.Post("/read-all", h.MarkAllRead)
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		r.Route("/stream", func(r chi.Router) {
			r.Get("/orders", h.StreamOrders)
			r.Get("/notifications", h.StreamNotifications)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Patch("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Patch("/{id}", h.UpdateCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
		})

		r.Route("/lookbook", func(r chi.Router) {
			r.Get("/", h.ListLookbookPosts)
			r.Post("/", h.CreateLookbookPost)
			r.Get("/{id}", h.GetLookbookPost)
			r.Patch("/{id}", h.UpdateLookbookPost)
			r.Delete("/{id}", h.DeleteLookbookPost)
			r.Get("/{id}/comments", h.ListLookbookComments)
			r.Post("/{id}/comments", h.AddLookbookComment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}
