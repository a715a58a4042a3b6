package domain

import "math"

// PollID identifies a poll. Non-negative ids are assigned by the server;
// negative ids denote polls created on this client and not yet confirmed.
type PollID int64

func (id PollID) IsValid() bool {
	return id != 0
}

// IsLocal reports whether the id belongs to the client-local range.
// Locality is a pure function of the value, never a stored flag.
func (id PollID) IsLocal() bool {
	return id < 0 && id > math.MinInt64
}

// FullMessageID identifies a message together with its owning chat.
type FullMessageID struct {
	ChatID    int64
	MessageID int64
}

// PollOption - a single answer of a poll with its vote tally.
type PollOption struct {
	Text string
	// Data - server-defined vote key, the only stable identifier of an
	// option across edits.
	Data       string
	VoterCount int32
	IsChosen   bool
}

// Poll - structure for storing confirmed information about a poll.
type Poll struct {
	Question        string
	Options         []PollOption
	TotalVoterCount int32
	IsClosed        bool
}

// Clone returns a deep copy of the poll.
func (p *Poll) Clone() *Poll {
	options := make([]PollOption, len(p.Options))
	copy(options, p.Options)
	return &Poll{
		Question:        p.Question,
		Options:         options,
		TotalVoterCount: p.TotalVoterCount,
		IsClosed:        p.IsClosed,
	}
}

// ServerPoll - a poll snapshot pushed by the server.
type ServerPoll struct {
	ID       int64
	Question string
	Answers  []ServerPollAnswer
	IsClosed bool
}

type ServerPollAnswer struct {
	Text string
	Data string
}

// ServerResults - a vote-tally snapshot pushed by the server. When IsMin
// is set the per-voter chosen flags are withheld and must not be applied.
type ServerResults struct {
	IsMin              bool
	HasTotalVoterCount bool
	TotalVoterCount    int32
	Results            []ServerAnswerVoters
}

type ServerAnswerVoters struct {
	Data       string
	VoterCount int32
	IsChosen   bool
}

// SetAnswerEvent - durable record of an in-flight vote submission, kept
// in the write-ahead log until the remote call resolves.
type SetAnswerEvent struct {
	PollID    PollID
	MessageID FullMessageID
	Options   []string
}
