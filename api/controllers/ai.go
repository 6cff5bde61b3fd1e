package controllers

import (
	"context"
	"net/http"

	"github.com/rootsreach/rootsreach-backend/api/responses"
	"github.com/rootsreach/rootsreach-backend/api/validators"
	"github.com/rootsreach/rootsreach-backend/internal/ai"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

// descriptionRequest is the shape the web client posts: the product sits
// under "product".
type descriptionRequest struct {
	Product *ai.DescriptionInput `json:"product" validate:"required"`
}

func AIGenerateDescription(svc ai.Service, logg *logger.Logger) http.HandlerFunc {
	return aiHandler(svc, logg, func(ctx context.Context, body descriptionRequest) (*ai.DescriptionResult, error) {
		return svc.GenerateDescription(ctx, *body.Product)
	})
}

func AITranslate(svc ai.Service, logg *logger.Logger) http.HandlerFunc {
	return aiHandler(svc, logg, func(ctx context.Context, body ai.TranslateInput) (*ai.TranslateResult, error) {
		return svc.Translate(ctx, body)
	})
}

func AIGenerateVoice(svc ai.Service, logg *logger.Logger) http.HandlerFunc {
	return aiHandler(svc, logg, func(ctx context.Context, body ai.VoiceInput) (*ai.VoiceResult, error) {
		return svc.GenerateVoice(ctx, body)
	})
}

// aiHandler decodes In, calls the helper and writes its result. A missing
// service answers 500 instead of panicking.
func aiHandler[In, Out any](svc ai.Service, logg *logger.Logger, call func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ai service unavailable"))
			return
		}
		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := call(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
