package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Xausdorf/chatpoll/internal/domain"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrPollClosed     = errors.New("can't answer closed poll")
	ErrLocalPoll      = errors.New("poll can't be answered")
	ErrTooManyOptions = errors.New("can't choose more than 1 option")
	ErrNoSuchOption   = errors.New("invalid option id specified")
)

// BinlogEventKind types entries of the write-ahead log.
type BinlogEventKind uint32

const (
	BinlogEventSetAnswer BinlogEventKind = 1
)

// BinlogEvent - a persisted write-ahead log entry delivered on startup.
type BinlogEvent struct {
	ID      uint64
	Kind    BinlogEventKind
	Payload []byte
}

// PollStore persists finalized poll records keyed by string.
type PollStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Binlog is the write-ahead log of in-flight operations. A returned entry
// id is never zero; zero means "no entry" throughout the manager.
type Binlog interface {
	Add(ctx context.Context, kind BinlogEventKind, payload []byte) (uint64, error)
	Rewrite(ctx context.Context, id uint64, kind BinlogEventKind, payload []byte) (uint64, error)
	Erase(ctx context.Context, id uint64) error
}

// VoteTransport submits a vote to the server. The call is asynchronous:
// complete is invoked exactly once with the outcome, possibly after the
// returned cancel function has been called. Cancel is idempotent.
type VoteTransport interface {
	SubmitVote(ctx context.Context, messageID domain.FullMessageID, options []string, complete func(err error)) (cancel func())
}

// Notifier receives change notifications for messages displaying a poll
// whose content changed.
type Notifier interface {
	OnPollContentChanged(messageID domain.FullMessageID)
}

// DependencyResolver force-loads the chat state a replayed message refers
// to, so the poll and its dialog are available before resubmission.
type DependencyResolver interface {
	ResolveMessageDependencies(ctx context.Context, messageID domain.FullMessageID) error
}

// RecordCodec encodes poll records and log entries for the durable layer.
type RecordCodec interface {
	EncodePoll(poll *domain.Poll) ([]byte, error)
	DecodePoll(value []byte) (*domain.Poll, error)
	EncodeSetAnswerEvent(event *domain.SetAnswerEvent) ([]byte, error)
	DecodeSetAnswerEvent(payload []byte) (*domain.SetAnswerEvent, error)
}

// PollManager owns all client-side poll state: the in-memory registry of
// confirmed polls, the per-poll pending answers and the message index.
//
// All state transitions are serialized by a single mutex; completion
// callbacks and change notifications are invoked on the goroutine that
// triggered them, while the lock is held, and must not call back into
// the manager synchronously.
type PollManager struct {
	log       *slog.Logger
	store     PollStore
	binlog    Binlog
	transport VoteTransport
	notifier  Notifier
	resolver  DependencyResolver
	codec     RecordCodec

	storageEnabled bool

	mu                 sync.Mutex
	polls              map[domain.PollID]*domain.Poll
	pollMessages       map[domain.PollID]map[domain.FullMessageID]struct{}
	pendingAnswers     map[domain.PollID]*pendingAnswer
	loadedFromStore    map[domain.PollID]struct{}
	currentLocalPollID int64
	currentGeneration  uint64
	closing            bool
}

// pendingAnswer tracks the single in-flight vote submission of a poll.
type pendingAnswer struct {
	options    []string
	waiters    []func(err error)
	generation uint64
	binlogID   uint64
	cancelCall func()
}

func NewPollManager(
	log *slog.Logger,
	store PollStore,
	binlog Binlog,
	transport VoteTransport,
	notifier Notifier,
	resolver DependencyResolver,
	codec RecordCodec,
	storageEnabled bool,
) *PollManager {
	return &PollManager{
		log:             log,
		store:           store,
		binlog:          binlog,
		transport:       transport,
		notifier:        notifier,
		resolver:        resolver,
		codec:           codec,
		storageEnabled:  storageEnabled,
		polls:           make(map[domain.PollID]*domain.Poll),
		pollMessages:    make(map[domain.PollID]map[domain.FullMessageID]struct{}),
		pendingAnswers:  make(map[domain.PollID]*pendingAnswer),
		loadedFromStore: make(map[domain.PollID]struct{}),
	}
}

// Close marks the manager as shutting down. Remote errors arriving after
// that are swallowed: their log entries stay in the binlog and the
// submissions are replayed on the next start.
func (m *PollManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closing = true
}

func pollStoreKey(pollID domain.PollID) string {
	return "poll" + strconv.FormatInt(int64(pollID), 10)
}

func (m *PollManager) getPoll(pollID domain.PollID) *domain.Poll {
	return m.polls[pollID]
}

// HasPoll reports whether the poll is present in the in-memory registry.
func (m *PollManager) HasPoll(pollID domain.PollID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getPoll(pollID) != nil
}

// getPollForce returns the registry entry, loading it from the durable
// store on first miss. A miss is recorded and never retried. Local polls
// are transient and never looked up in the store.
func (m *PollManager) getPollForce(ctx context.Context, pollID domain.PollID) *domain.Poll {
	const op = "PollManager.getPollForce"

	if poll := m.getPoll(pollID); poll != nil {
		return poll
	}
	if !m.storageEnabled || pollID.IsLocal() {
		return nil
	}
	if _, attempted := m.loadedFromStore[pollID]; attempted {
		return nil
	}

	m.loadedFromStore[pollID] = struct{}{}

	value, found, err := m.store.Get(ctx, pollStoreKey(pollID))
	if err != nil {
		panic(fmt.Sprintf("%s: failed to load poll %d: %v", op, pollID, err))
	}
	if !found {
		return nil
	}

	poll, err := m.codec.DecodePoll(value)
	if err != nil {
		// Persisted data corruption, the process can't safely proceed.
		panic(fmt.Sprintf("%s: corrupted record of poll %d: %v", op, pollID, err))
	}

	m.log.Info("loaded poll from store", slog.Int64("pollID", int64(pollID)))
	m.polls[pollID] = poll
	return poll
}

// savePoll writes the confirmed poll state to the durable store. Local
// polls and the pending optimistic overlay are never persisted.
func (m *PollManager) savePoll(ctx context.Context, pollID domain.PollID, poll *domain.Poll) {
	const op = "PollManager.savePoll"

	if pollID.IsLocal() || !m.storageEnabled {
		return
	}

	value, err := m.codec.EncodePoll(poll)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to encode poll %d: %v", op, pollID, err))
	}
	if err := m.store.Set(ctx, pollStoreKey(pollID), value); err != nil {
		panic(fmt.Sprintf("%s: failed to save poll %d: %v", op, pollID, err))
	}
}

func (m *PollManager) notifyOnPollUpdate(pollID domain.PollID) {
	for messageID := range m.pollMessages[pollID] {
		m.notifier.OnPollContentChanged(messageID)
	}
}

// CreatePoll builds a new local poll and returns its placeholder id. The
// option data keys are positional and replaced by server-assigned ones
// once the poll is confirmed.
func (m *PollManager) CreatePoll(question string, optionTexts []string) domain.PollID {
	m.mu.Lock()
	defer m.mu.Unlock()

	options := make([]domain.PollOption, 0, len(optionTexts))
	for pos, text := range optionTexts {
		options = append(options, domain.PollOption{
			Text: text,
			Data: strconv.Itoa(pos),
		})
	}

	m.currentLocalPollID--
	pollID := domain.PollID(m.currentLocalPollID)

	m.polls[pollID] = &domain.Poll{
		Question: question,
		Options:  options,
	}

	m.log.Info("created local poll", slog.Int64("pollID", int64(pollID)))
	return pollID
}

// RegisterPoll records that a message displays the poll, so that change
// notifications reach it.
func (m *PollManager) RegisterPoll(pollID domain.PollID, messageID domain.FullMessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getPoll(pollID) == nil {
		return ErrPollNotFound
	}
	messages, ok := m.pollMessages[pollID]
	if !ok {
		messages = make(map[domain.FullMessageID]struct{})
		m.pollMessages[pollID] = messages
	}
	messages[messageID] = struct{}{}
	return nil
}

// UnregisterPoll removes the message from the poll's fan-out set. The
// poll itself stays in the registry.
func (m *PollManager) UnregisterPoll(pollID domain.PollID, messageID domain.FullMessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getPoll(pollID) == nil {
		return ErrPollNotFound
	}
	delete(m.pollMessages[pollID], messageID)
	return nil
}

// ClosePoll marks the poll closed. Idempotent: closing a closed poll is a
// no-op. The change is local only.
// TODO: send a poll close request to the server with its own log event.
func (m *PollManager) ClosePoll(ctx context.Context, pollID domain.PollID) error {
	const op = "PollManager.ClosePoll"

	m.mu.Lock()
	defer m.mu.Unlock()

	poll := m.getPoll(pollID)
	if poll == nil {
		return ErrPollNotFound
	}
	if poll.IsClosed {
		return nil
	}

	poll.IsClosed = true
	m.notifyOnPollUpdate(pollID)
	if !pollID.IsLocal() {
		m.savePoll(ctx, pollID, poll)
	}

	m.log.Info("closed poll", slog.String("op", op), slog.Int64("pollID", int64(pollID)))
	return nil
}
