// internal/app/features/imports/routes.go
package imports

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/imports.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/validate", h.HandleValidate)
	r.Post("/", h.HandleImport)
	return r
}
