package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/handlers/identity"
	"github.com/Artanty/key/internal/handlers/render"
	"github.com/Artanty/key/internal/logger"
	"github.com/Artanty/key/internal/service/token"
)

func handleIssue(tokenService tokenService, logger logger.Logger) http.Handler {
	type request struct {
		TargetProject string `json:"targetProject"`
		TargetURL     string `json:"targetUrl"`
	}
	type response struct {
		APIKey    string    `json:"apiKey"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Presence of target fields is checked together with the identity
		// headers, so the refusal lists everything that is absent at once
		data, err := render.Bind[request](w, r)
		if err != nil {
			return
		}

		requester := identity.FromRequest(r)

		minted, err := tokenService.Issue(r.Context(), token.IssueParams{
			RequesterProject: requester.Project,
			RequesterURL:     requester.URL,
			RequesterBaseKey: requester.BaseKey,
			TargetProject:    data.TargetProject,
			TargetURL:        data.TargetURL,
		})

		var missingErr *apperrors.MissingParamsError

		switch {
		case err == nil:
			logger.Info("api key issued", "requester", minted.Requester, "target", minted.Target)
			render.JSON(w, response{APIKey: minted.APIKey, ExpiresAt: minted.ExpiresAt})
		case errors.As(err, &missingErr):
			render.MissingParams(w, missingErr.Fields)
		case errors.Is(err, apperrors.ErrRequesterMismatch):
			logger.Info("issue refused: requester mismatch", "requester", requester.Project, "target", data.TargetProject)
			render.Forbidden(w, "requester mismatch")
		case errors.Is(err, apperrors.ErrTargetMismatch):
			logger.Info("issue refused: target mismatch", "requester", requester.Project, "target", data.TargetProject)
			render.Forbidden(w, "target mismatch")
		default:
			logger.Error("api key issue failed", "requester", requester.Project, "target", data.TargetProject, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
