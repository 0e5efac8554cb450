package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MalayathiGeetha/Motor-Part/api/responses"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

// ListAuditLog pages through the global audit log, newest first.
func ListAuditLog(svc AuditService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.QueryAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPageResponse{Items: toAuditEntryResponses(page.Items), Cursor: page.Cursor})
	}
}

func EntityAuditTrail(svc AuditService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}
		entityType, err := enums.ParseAuditEntityType(chi.URLParam(r, "entityType"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity type"))
			return
		}
		entityID := strings.TrimSpace(chi.URLParam(r, "entityId"))
		entries, err := svc.QueryByEntity(r.Context(), entityType, entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAuditEntryResponses(entries))
	}
}
