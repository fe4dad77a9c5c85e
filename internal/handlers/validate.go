package handlers

import (
	"errors"
	"net/http"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/handlers/identity"
	"github.com/Artanty/key/internal/handlers/render"
	"github.com/Artanty/key/internal/logger"
	"github.com/Artanty/key/internal/service/token"
)

func handleValidate(tokenService tokenService, logger logger.Logger) http.Handler {
	type request struct {
		RequesterProject string `json:"requesterProject"`
		RequesterAPIKey  string `json:"requesterApiKey"`
		RequesterURL     string `json:"requesterUrl"`
	}
	type response struct {
		Valid     bool   `json:"valid"`
		Requester string `json:"requester,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.Bind[request](w, r)
		if err != nil {
			return
		}

		validator := identity.FromRequest(r)

		validated, err := tokenService.Validate(r.Context(), token.ValidateParams{
			ValidatorProject: validator.Project,
			ValidatorURL:     validator.URL,
			ValidatorBaseKey: validator.BaseKey,
			RequesterProject: data.RequesterProject,
			RequesterURL:     data.RequesterURL,
			RequesterAPIKey:  data.RequesterAPIKey,
		})

		var mismatchErr *apperrors.TokenMismatchError

		switch {
		case err == nil:
			logger.Info("api key validated", "validator", validator.Project, "requester", validated.Requester)
			render.JSON(w, response{Valid: true, Requester: validated.Requester})
		case errors.Is(err, apperrors.ErrAccessDenied):
			logger.Info("validate refused: validator identity mismatch", "validator", validator.Project)
			render.JSONWithStatus(w, response{Valid: false, Error: "access denied"}, http.StatusForbidden)
		case errors.As(err, &mismatchErr):
			// Which fields diverged stays in the log, the caller sees the
			// same body as for an unknown key
			logger.Info("validate refused: token issued for another party",
				"validator", validator.Project,
				"requester", data.RequesterProject,
				"mismatched", mismatchErr.Fields,
			)
			render.JSONWithStatus(w, response{Valid: false, Error: "invalid or expired key"}, http.StatusForbidden)
		case errors.Is(err, apperrors.ErrTokenNotFound):
			logger.Info("validate refused: no live token", "validator", validator.Project, "requester", data.RequesterProject)
			render.JSONWithStatus(w, response{Valid: false, Error: "invalid or expired key"}, http.StatusForbidden)
		default:
			logger.Error("api key validation failed", "validator", validator.Project, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
