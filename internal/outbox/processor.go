package outbox

import (
	"context"
	"encoding/json"
	"time"

	"eboto/internal/domain/outbox"
	"eboto/internal/events"
	"eboto/internal/observability"
	"eboto/internal/repository"
	"eboto/pkg/logger"

	"go.uber.org/zap"
)

// Processor relays committed outbox events to Redis pub/sub.
type Processor struct {
	repo       repository.OutboxRepository
	publisher  events.Publisher
	batchSize  int
	interval   time.Duration
	maxRetries int
	log        *logger.Logger
}

func NewProcessor(repo repository.OutboxRepository, publisher events.Publisher, batchSize int, interval time.Duration, maxRetries int) *Processor {
	return &Processor{
		repo:       repo,
		publisher:  publisher,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
		log:        logger.OrGlobal(nil),
	}
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publishes up to batchSize pending events and returns how many
// were delivered.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil {
		p.log.Logger.Warn("outbox fetch failed", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, e := range batch {
		if e.RetryCount >= p.maxRetries {
			_ = p.repo.MarkFailed(ctx, e.ID, "max retries exceeded")
			observability.OutboxPublished(e.EventType, "failed")
			continue
		}

		env := envelopeOf(e)
		payload, err := json.Marshal(env)
		if err != nil {
			_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
			observability.OutboxPublished(e.EventType, "failed")
			continue
		}

		if err := p.publisher.Publish(ctx, routeChannel(env), payload); err != nil {
			_ = p.repo.IncrementRetry(ctx, e.ID, err.Error())
			observability.OutboxPublished(e.EventType, "retry")
			p.log.Logger.Warn("outbox publish failed",
				zap.String("event_id", e.ID.String()),
				zap.String("event_type", e.EventType),
				zap.Error(err),
			)
			continue
		}

		_ = p.repo.MarkCompleted(ctx, e.ID)
		observability.OutboxPublished(e.EventType, "ok")
		delivered++
	}
	return delivered
}

func envelopeOf(e outbox.OutboxEvent) events.Envelope {
	return events.Envelope{
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.CreatedAt.UTC(),
		Payload:       json.RawMessage(e.Payload),
	}
}

// routeChannel sends notifications to the mailer channel and tally updates
// to the election's realtime channel.
func routeChannel(env events.Envelope) string {
	switch env.EventType {
	case events.EventTypeElectionStarted, events.EventTypeElectionResultReady, events.EventTypeBallotCast:
		return events.ChannelNotificationsEmail
	case events.EventTypeTallyUpdated:
		return events.ChannelPrefixElection + env.AggregateID + ":tally"
	default:
		return events.ChannelSystemOutbox
	}
}
