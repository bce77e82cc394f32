package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/store"
)

type catalogRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=category type"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
}

type catalogUpdateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
}

// catalogName trims name and, for categories, requires one of the priced categories.
func catalogName(kind store.CatalogKind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if kind != store.KindCategory {
		return name, nil
	}
	category, err := pricing.ParseCategory(name)
	if err != nil {
		return "", err
	}
	return string(category), nil
}

func (s *server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if raw := r.URL.Query().Get("includeInactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, badRequest("includeInactive must be true or false"))
			return
		}
		includeInactive = v
	}

	categories, err := s.store.ListCatalog(r.Context(), store.KindCategory, includeInactive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	types, err := s.store.ListCatalog(r.Context(), store.KindType, includeInactive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories, "types": types})
}

func (s *server) handleCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	kind := store.CatalogKind(req.Kind)
	name, err := catalogName(kind, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry := store.CatalogEntry{Kind: kind, Name: name, Description: strings.TrimSpace(req.Description), IsActive: true}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	created, err := s.store.CreateCatalogEntry(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogUpdateRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.store.GetCatalogEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entry.Name, err = catalogName(entry.Kind, req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry.Description = strings.TrimSpace(req.Description)
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	updated, err := s.store.UpdateCatalogEntry(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleDeleteCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCatalogEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkCatalog requires the item's category and non-empty type to be active catalog entries.
// Values the item already had are accepted, so retiring a type does not block edits of older items.
func (s *server) checkCatalog(ctx context.Context, it *store.Item, prev store.Item) error {
	if it.Category != prev.Category {
		if _, err := s.store.ActiveCatalogName(ctx, store.KindCategory, string(it.Category)); err != nil {
			return catalogError(err, "category %q is not active", it.Category)
		}
	}
	if it.Type != "" && !strings.EqualFold(it.Type, prev.Type) {
		name, err := s.store.ActiveCatalogName(ctx, store.KindType, it.Type)
		if err != nil {
			return catalogError(err, "type %q is not an active item type", it.Type)
		}
		it.Type = name
	}
	return nil
}

func catalogError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return badRequest(format, args...)
	}
	return err
}
