package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/MalayathiGeetha/Motor-Part/api/middleware"
	"github.com/MalayathiGeetha/Motor-Part/api/responses"
	"github.com/MalayathiGeetha/Motor-Part/api/validators"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type stockMutation func(ctx context.Context, svc PartService, actor string, partID uuid.UUID, qty int) (*inventory.PartDTO, error)

func receive(ctx context.Context, svc PartService, actor string, partID uuid.UUID, qty int) (*inventory.PartDTO, error) {
	return svc.ReceiveStock(ctx, actor, partID, qty)
}

func deduct(ctx context.Context, svc PartService, actor string, partID uuid.UUID, qty int) (*inventory.PartDTO, error) {
	return svc.DeductStock(ctx, actor, partID, qty)
}

// ReceiveStock books incoming units against a part.
func ReceiveStock(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc, logg, receive)
}

// DeductStock removes units from a part; 422 when stock is short.
func DeductStock(svc PartService, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc, logg, deduct)
}

func stockHandler(svc PartService, logg *logger.Logger, mutate stockMutation) http.HandlerFunc {
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
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPartID(ctx, partID.String())
		}
		part, err := mutate(ctx, svc, middleware.ActorFromContext(ctx), partID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// ReorderPart records a reorder request without touching stock.
func ReorderPart(svc PartService, logg *logger.Logger) http.HandlerFunc {
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
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ReorderPart(r.Context(), middleware.ActorFromContext(r.Context()), partID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"part_id":  partID,
			"quantity": payload.Quantity,
			"status":   "requested",
		})
	}
}
