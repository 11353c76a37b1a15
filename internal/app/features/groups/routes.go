// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// LIST
	r.Get("/", h.ServeList)

	// DELETE
	r.Delete("/{id}", h.HandleDelete)

	return r
}
