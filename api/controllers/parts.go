package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MalayathiGeetha/Motor-Part/api/middleware"
	"github.com/MalayathiGeetha/Motor-Part/api/responses"
	"github.com/MalayathiGeetha/Motor-Part/api/validators"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

const (
	partIDParam    = "partId"
	maxSearchQuery = 100
)

type createPartRequest struct {
	PartCode         string           `json:"part_code" validate:"required,max=50"`
	PartName         string           `json:"part_name" validate:"required,max=200"`
	Description      *string          `json:"description,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unit_price" validate:"required"`
	CurrentStock     *int             `json:"current_stock,omitempty" validate:"omitempty,gte=0"`
	ReorderThreshold *int             `json:"reorder_threshold,omitempty" validate:"omitempty,gte=0"`
	RackLocation     *string          `json:"rack_location,omitempty" validate:"omitempty,max=50"`
	ImageURL         *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

func (r createPartRequest) toInput() inventory.CreatePartInput {
	return inventory.CreatePartInput{
		PartCode:         r.PartCode,
		PartName:         r.PartName,
		Description:      r.Description,
		UnitPrice:        *r.UnitPrice,
		InitialStock:     r.CurrentStock,
		ReorderThreshold: r.ReorderThreshold,
		RackLocation:     r.RackLocation,
		ImageURL:         r.ImageURL,
	}
}

// updatePartRequest has no stock field; stock only moves through receive and deduct.
type updatePartRequest struct {
	PartName         *string          `json:"part_name,omitempty" validate:"omitempty,max=200"`
	Description      *string          `json:"description,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	ReorderThreshold *int             `json:"reorder_threshold,omitempty" validate:"omitempty,gte=0"`
	RackLocation     *string          `json:"rack_location,omitempty" validate:"omitempty,max=50"`
	ImageURL         *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

func (r updatePartRequest) toInput() inventory.UpdatePartInput {
	return inventory.UpdatePartInput{
		PartName:         r.PartName,
		Description:      r.Description,
		UnitPrice:        r.UnitPrice,
		ReorderThreshold: r.ReorderThreshold,
		RackLocation:     r.RackLocation,
		ImageURL:         r.ImageURL,
	}
}

// ListParts pages through the catalog.
func ListParts(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListParts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SearchParts(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		q := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery)
		parts, err := svc.SearchParts(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts)
	}
}

func GetPart(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		partID, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.GetPart(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// CreatePart registers a new part.
func CreatePart(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		var payload createPartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.CreatePart(r.Context(), middleware.ActorFromContext(r.Context()), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

func UpdatePart(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		partID, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updatePartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.UpdatePartDetails(r.Context(), middleware.ActorFromContext(r.Context()), partID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func DeletePart(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		partID, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePart(r.Context(), middleware.ActorFromContext(r.Context()), partID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// PartAuditTrail returns the audit history of one part, newest first.
func PartAuditTrail(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		partID, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.GetPartAuditTrail(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAuditEntryResponses(entries))
	}
}

// InventoryStats returns catalog totals for the dashboard.
func InventoryStats(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func parsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}
