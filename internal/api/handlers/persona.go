package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/luminary-chat/luminary/internal/api"
	"github.com/luminary-chat/luminary/internal/domain"
)

// PersonaLister is the persona surface the public API consumes.
type PersonaLister interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Persona, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Persona, error)
}

type PersonaHandler struct {
	personas PersonaLister
}

func NewPersonaHandler(personas PersonaLister) *PersonaHandler {
	return &PersonaHandler{personas: personas}
}

type PersonaResponse struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PersonaListResponse struct {
	Personas []*PersonaResponse `json:"personas"`
}

func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	personas, err := h.personas.List(r.Context(), false)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*PersonaResponse, len(personas))
	for i, p := range personas {
		responses[i] = &PersonaResponse{Slug: p.Slug, Name: p.Name, Description: p.Description}
	}

	api.Success(w, http.StatusOK, PersonaListResponse{Personas: responses})
}

func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	persona, err := h.personas.GetBySlug(r.Context(), slug)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if persona.Archived {
		api.HandleError(w, domain.ErrPersonaNotFound)
		return
	}

	api.Success(w, http.StatusOK, &PersonaResponse{
		Slug:        persona.Slug,
		Name:        persona.Name,
		Description: persona.Description,
	})
}
