package handlers

import (
	"context"
	"net/http"

	"github.com/Artanty/key/internal/handlers/middleware"
	"github.com/Artanty/key/internal/logger"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/service/token"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	registryService registryService,
	tokenService tokenService,
	logger logger.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /register", handleRegister(registryService, logger))
	mux.Handle("POST /issue", handleIssue(tokenService, logger))
	mux.Handle("POST /validate", handleValidate(tokenService, logger))
	mux.Handle("GET /health", handleHealth())

	return chain(mux,
		middleware.LoggerMiddleware(logger),
	)
}

type registryService interface {
	// Register service under (project, url) pair
	// Has to rotate the base key when the pair is already registered
	Register(ctx context.Context, project string, url string) (models.Service, error)
}

type tokenService interface {
	// Issue api key the requester may present to the target
	// Expected errors:
	//   apperrors.MissingParamsError, apperrors.ErrRequesterMismatch,
	//   apperrors.ErrTargetMismatch
	Issue(ctx context.Context, params token.IssueParams) (models.Token, error)

	// Validate api key presented to the validating service
	// Expected errors:
	//   apperrors.ErrAccessDenied, apperrors.ErrTokenNotFound,
	//   apperrors.TokenMismatchError
	Validate(ctx context.Context, params token.ValidateParams) (models.Token, error)
}
