package handlers

import (
	"net/http"

	"github.com/Artanty/key/internal/handlers/render"
	"github.com/Artanty/key/internal/logger"
)

func handleRegister(registryService registryService, logger logger.Logger) http.Handler {
	type request struct {
		Project string `json:"project" validate:"required"`
		URL     string `json:"url" validate:"required"`
	}
	type response struct {
		BaseKey string `json:"baseKey"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		registered, err := registryService.Register(r.Context(), data.Project, data.URL)
		if err != nil {
			logger.Error("service registration failed", "project", data.Project, "url", data.URL, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info("service registered", "project", registered.Project, "url", registered.URL)
		render.JSON(w, response{BaseKey: registered.BaseKey})
	})
}
