package events

import "github.com/google/uuid"

// Event types follow the domain.action format.
const (
	EventTypeElectionStarted     = "election.started"
	EventTypeElectionResultReady = "election.result_ready"
	EventTypeBallotCast          = "ballot.cast"
	EventTypeTallyUpdated        = "tally.updated"
)

// Aggregate types stored on outbox events.
const (
	AggregateElection = "election"
	AggregateBallot   = "ballot"
)

// Redis channel names.
const (
	ChannelPrefixElection     = "channel:election:"
	ChannelNotificationsEmail = "channel:notifications:email"
	ChannelSystemOutbox       = "channel:system:outbox"

	// ChannelPatternElection matches every per-election realtime channel.
	ChannelPatternElection = ChannelPrefixElection + "*"
)

// TallyChannel is where tally.updated events for one election are published.
func TallyChannel(electionID uuid.UUID) string {
	return ChannelPrefixElection + electionID.String() + ":tally"
}

// Notification kinds understood by the external mailer.
const (
	NotificationStart   = "start"
	NotificationResult  = "result"
	NotificationReceipt = "receipt"
)
