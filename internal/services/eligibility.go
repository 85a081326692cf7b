package services

import (
	"context"
	"errors"
	"time"

	"eboto/internal/access"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"
	"eboto/pkg/logger"
)

// loadElectionForEligibility gathers everything access.CanView and
// access.CanVote need in one place. A missing slug yields a Subject with a
// nil Election rather than an error so callers cannot tell it apart from a
// hidden election.
func loadElectionForEligibility(ctx context.Context, st repository.Store, p access.Principal, slug string, now time.Time, loc *time.Location) (access.Subject, error) {
	subject := access.Subject{Now: now, Location: loc}

	e, err := st.Elections().GetBySlug(ctx, slug)
	if errors.Is(err, eboto_errors.ErrNotFound) {
		return subject, nil
	}
	if err != nil {
		return subject, err
	}
	subject.Election = &e

	if !p.Authenticated {
		return subject, nil
	}

	isCommissioner, err := st.Commissioners().IsCommissioner(ctx, e.ID, p.UserID)
	if err != nil {
		return subject, err
	}
	subject.IsCommissioner = isCommissioner

	v, err := st.Voters().FindForPrincipal(ctx, e.ID, p.UserID, p.Email)
	switch {
	case err == nil:
		subject.Voter = &v
	case !errors.Is(err, eboto_errors.ErrNotFound):
		return subject, err
	}
	return subject, nil
}

func logFor(ctx context.Context) *logger.Logger {
	return logger.OrGlobal(nil).WithContext(ctx)
}
