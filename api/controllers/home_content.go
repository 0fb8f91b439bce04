package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/homecontent"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxListNameLength = 64

// PublicHomeContent serves the storefront home page lists with dangling references removed.
func PublicHomeContent(svc homecontent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "home content service unavailable"))
			return
		}
		content, err := svc.GetPublicHomeContent(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, content)
	}
}

// AdminGetHomeContent returns every entry, unresolved ones flagged. With ?view=raw
// it returns the stored references without touching the catalog.
func AdminGetHomeContent(svc homecontent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "home content service unavailable"))
			return
		}
		if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("view")), "raw") {
			raw, err := svc.GetRaw(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, raw)
			return
		}
		content, err := svc.GetHomeContent(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, content)
	}
}

// AdminSetHomeContentList replaces one curated list wholesale.
func AdminSetHomeContentList(svc homecontent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "home content service unavailable"))
			return
		}
		listName, err := validators.PathString(r, "listName", maxListNameLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload homecontent.SetListInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		raw, err := svc.SetList(r.Context(), listName, payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, raw)
	}
}

// AdminClearHomeContentList empties one curated list.
func AdminClearHomeContentList(svc homecontent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "home content service unavailable"))
			return
		}
		listName, err := validators.PathString(r, "listName", maxListNameLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		raw, err := svc.ClearList(r.Context(), listName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, raw)
	}
}
