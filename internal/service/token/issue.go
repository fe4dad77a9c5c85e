package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/repository"
)

// IssueParams identifies the requester and names the target it wants to call.
// All five fields are required.
type IssueParams struct {
	RequesterProject string
	RequesterURL     string
	RequesterBaseKey string
	TargetProject    string
	TargetURL        string
}

func (p IssueParams) missing() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"requesterProject", p.RequesterProject},
		{"requesterUrl", p.RequesterURL},
		{"requesterBaseKey", p.RequesterBaseKey},
		{"targetProject", p.TargetProject},
		{"targetUrl", p.TargetURL},
	}

	var missing []string
	for _, field := range fields {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}

	return missing
}

// Issue returns an api key the requester may present to the target.
//
// The requester must match its registration on url and base key, the target
// must match on url. While a live token exists for the same
// (target, requester, target url) it is returned again instead of minting
// a new one, so repeated calls share one key until it expires.
//
// Errors:
//   - apperrors.MissingParamsError if any required param is empty
//   - apperrors.ErrRequesterMismatch if the requester is unknown or its
//     url or base key doesn't match the registered record
//   - apperrors.ErrTargetMismatch if the target is unknown or registered
//     under a different url
func (s *Service) Issue(ctx context.Context, params IssueParams) (models.Token, error) {
	if missing := params.missing(); len(missing) > 0 {
		return models.Token{}, &apperrors.MissingParamsError{Fields: missing}
	}

	now := time.Now()

	var token models.Token

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		requester, err := storage.Services().GetByProject(ctx, params.RequesterProject)
		switch {
		case errors.Is(err, apperrors.ErrServiceNotFound):
			return apperrors.ErrRequesterMismatch
		case err != nil:
			return err
		}
		if requester.URL != params.RequesterURL || requester.BaseKey != params.RequesterBaseKey {
			return apperrors.ErrRequesterMismatch
		}

		target, err := storage.Services().GetByProject(ctx, params.TargetProject)
		switch {
		case errors.Is(err, apperrors.ErrServiceNotFound):
			return apperrors.ErrTargetMismatch
		case err != nil:
			return err
		}
		if target.URL != params.TargetURL {
			return apperrors.ErrTargetMismatch
		}

		existing, err := storage.Tokens().GetLive(ctx, params.TargetProject, params.RequesterProject, params.TargetURL, now)
		switch {
		case err == nil:
			token = existing
			return nil
		case !errors.Is(err, apperrors.ErrTokenNotFound):
			return err
		}

		token, err = storage.Tokens().Create(ctx, models.Token{
			ID:           uuid.New(),
			Target:       params.TargetProject,
			Requester:    params.RequesterProject,
			APIKey:       s.deriver.APIKey(target.BaseKey, params.RequesterProject, now),
			TargetURL:    params.TargetURL,
			RequesterURL: params.RequesterURL,
			ExpiresAt:    now.Add(s.tokenTTL),
			CreatedAt:    now,
		})
		return err
	})
	if err != nil {
		return models.Token{}, err
	}

	return token, nil
}
