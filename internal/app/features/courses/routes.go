// internal/app/features/courses/routes.go
package courses

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/courses.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Get("/{id}", h.ServeCourse)
	r.Delete("/{id}", h.HandleDelete)

	// sessions and roster
	r.Post("/{id}/sessions", h.HandleAddSession)
	r.Post("/{id}/students", h.HandleEnroll)
	r.Delete("/{id}/students/{studentID}", h.HandleWithdraw)

	return r
}
