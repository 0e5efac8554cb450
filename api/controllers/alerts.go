package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MalayathiGeetha/Motor-Part/api/middleware"
	"github.com/MalayathiGeetha/Motor-Part/api/responses"
	"github.com/MalayathiGeetha/Motor-Part/api/validators"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

const alertIDParam = "alertId"

// ListAlerts returns active alerts, or the full history of one part when
// part_id is given.
func ListAlerts(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("part_id")); raw != "" {
			partID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid part_id"))
				return
			}
			alerts, err := svc.ListForPart(r.Context(), partID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, toAlertResponses(alerts))
			return
		}

		alerts, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAlertResponses(alerts))
	}
}

func ListOpenAlerts(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		alerts, err := svc.ListOpen(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAlertResponses(alerts))
	}
}

// AcknowledgeAlert moves an OPEN alert to ACKNOWLEDGED. Other states are
// returned unchanged.
func AcknowledgeAlert(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		alertID, err := validators.ParseUUIDParam(r, alertIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alert, err := svc.Acknowledge(r.Context(), middleware.ActorFromContext(r.Context()), alertID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAlertResponse(*alert))
	}
}
