package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"eboto/internal/domain/election"
	"eboto/internal/domain/outbox"
	"eboto/internal/domain/voter"
	"eboto/internal/events"
	"eboto/internal/repository"

	"github.com/google/uuid"
)

// createOutboxEvent records an event in the caller's transaction. The
// outbox processor relays it to Redis after commit.
func createOutboxEvent(ctx context.Context, repo repository.OutboxRepository, aggregateType, eventType string, aggregateID uuid.UUID, payload interface{}, at time.Time) error {
	event, err := outbox.New(eventType, aggregateType, aggregateID, payload, at)
	if err != nil {
		return err
	}
	return repo.Create(ctx, event)
}

// recipients returns the deduplicated emails of every live voter and
// commissioner of an election.
func recipients(ctx context.Context, st repository.Store, electionID uuid.UUID) ([]string, error) {
	voters, err := st.Voters().ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	commissioners, err := st.Commissioners().ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(voters)+len(commissioners))
	out := make([]string, 0, len(voters)+len(commissioners))
	add := func(email string) {
		email = voter.NormalizeEmail(email)
		if email == "" {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	for _, v := range voters {
		add(v.Email)
	}
	for _, c := range commissioners {
		add(c.Email)
	}
	sort.Strings(out)
	return out, nil
}

// electionLink builds the public URL for an election page.
func electionLink(baseURL, slug string, suffix string) string {
	link := strings.TrimRight(baseURL, "/") + "/" + slug
	if suffix != "" {
		link += "/" + suffix
	}
	return link
}

func notification(kind string, e election.Election, to []string, link string) events.Notification {
	return events.Notification{
		Kind:         kind,
		Recipients:   to,
		ElectionID:   e.ID.String(),
		ElectionName: e.Name,
		ElectionSlug: e.Slug,
		Link:         link,
	}
}
