package token

import (
	"context"
	"errors"
	"time"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/repository"
)

// ValidateParams carries the validating target's identity and the
// credentials some requester presented to it.
type ValidateParams struct {
	ValidatorProject string
	ValidatorURL     string
	ValidatorBaseKey string
	RequesterProject string
	RequesterURL     string
	RequesterAPIKey  string
}

// Validate checks a presented api key on behalf of the validating service.
//
// The validator must first prove its own identity against the registry.
// The presented key must belong to a live token whose target, target url,
// requester and requester url all equal the presented values.
//
// Errors:
//   - apperrors.ErrAccessDenied if the validator is unknown or its url or
//     base key doesn't match the registered record
//   - apperrors.ErrTokenNotFound if no live token carries the api key
//   - apperrors.TokenMismatchError if the token exists but was issued for
//     a different party; the mismatched fields are not exposed to clients
func (s *Service) Validate(ctx context.Context, params ValidateParams) (models.Token, error) {
	now := time.Now()

	var token models.Token

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		validator, err := storage.Services().GetByProject(ctx, params.ValidatorProject)
		switch {
		case errors.Is(err, apperrors.ErrServiceNotFound):
			return apperrors.ErrAccessDenied
		case err != nil:
			return err
		}
		if validator.URL != params.ValidatorURL || validator.BaseKey != params.ValidatorBaseKey {
			return apperrors.ErrAccessDenied
		}

		found, err := storage.Tokens().GetLiveByAPIKey(ctx, params.RequesterAPIKey, now)
		if err != nil {
			return err
		}

		var mismatched []string
		if found.Target != params.ValidatorProject {
			mismatched = append(mismatched, "target")
		}
		if found.TargetURL != params.ValidatorURL {
			mismatched = append(mismatched, "targetUrl")
		}
		if found.Requester != params.RequesterProject {
			mismatched = append(mismatched, "requester")
		}
		if found.RequesterURL != params.RequesterURL {
			mismatched = append(mismatched, "requesterUrl")
		}
		if len(mismatched) > 0 {
			return &apperrors.TokenMismatchError{Fields: mismatched}
		}

		token = found
		return nil
	})
	if err != nil {
		return models.Token{}, err
	}

	return token, nil
}
