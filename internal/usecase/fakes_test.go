package usecase

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/Xausdorf/chatpoll/internal/repository/ttadapter"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data map[string][]byte
	gets int
	sets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.gets++
	value, found := s.data[key]
	return value, found, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.sets++
	s.data[key] = value
	return nil
}

type binlogEntry struct {
	kind    BinlogEventKind
	payload []byte
}

type fakeBinlog struct {
	entries  map[uint64]binlogEntry
	nextID   uint64
	adds     int
	rewrites int
	erases   int
}

func newFakeBinlog() *fakeBinlog {
	return &fakeBinlog{entries: make(map[uint64]binlogEntry), nextID: 1}
}

func (b *fakeBinlog) Add(_ context.Context, kind BinlogEventKind, payload []byte) (uint64, error) {
	id := b.nextID
	b.nextID++
	b.entries[id] = binlogEntry{kind: kind, payload: payload}
	b.adds++
	return id, nil
}

func (b *fakeBinlog) Rewrite(_ context.Context, id uint64, kind BinlogEventKind, payload []byte) (uint64, error) {
	b.entries[id] = binlogEntry{kind: kind, payload: payload}
	b.rewrites++
	return id, nil
}

func (b *fakeBinlog) Erase(_ context.Context, id uint64) error {
	delete(b.entries, id)
	b.erases++
	return nil
}

type transportCall struct {
	messageID domain.FullMessageID
	options   []string
	complete  func(err error)
	canceled  bool
}

type fakeTransport struct {
	calls []*transportCall
}

func (t *fakeTransport) SubmitVote(_ context.Context, messageID domain.FullMessageID, options []string, complete func(err error)) func() {
	call := &transportCall{
		messageID: messageID,
		options:   append([]string(nil), options...),
		complete:  complete,
	}
	t.calls = append(t.calls, call)
	return func() { call.canceled = true }
}

func (t *fakeTransport) last() *transportCall {
	return t.calls[len(t.calls)-1]
}

type fakeNotifier struct {
	notified []domain.FullMessageID
}

func (n *fakeNotifier) OnPollContentChanged(messageID domain.FullMessageID) {
	n.notified = append(n.notified, messageID)
}

type fakeResolver struct {
	resolved []domain.FullMessageID
	err      error
}

func (r *fakeResolver) ResolveMessageDependencies(_ context.Context, messageID domain.FullMessageID) error {
	r.resolved = append(r.resolved, messageID)
	return r.err
}

// waiter records the outcome a submission completion delivered.
type waiter struct {
	resolved bool
	err      error
}

func (w *waiter) complete(err error) {
	w.resolved = true
	w.err = err
}

type testEnv struct {
	manager   *PollManager
	store     *fakeStore
	binlog    *fakeBinlog
	transport *fakeTransport
	notifier  *fakeNotifier
	resolver  *fakeResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStorage(t, true)
}

func newTestEnvWithStorage(t *testing.T, storageEnabled bool) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     newFakeStore(),
		binlog:    newFakeBinlog(),
		transport: &fakeTransport{},
		notifier:  &fakeNotifier{},
		resolver:  &fakeResolver{},
	}
	env.manager = NewPollManager(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		env.store,
		env.binlog,
		env.transport,
		env.notifier,
		env.resolver,
		ttadapter.NewCodec(),
		storageEnabled,
	)
	return env
}

// seedRemotePoll pushes a server poll snapshot into the registry.
func (e *testEnv) seedRemotePoll(t *testing.T, id int64, question string, optionTexts ...string) domain.PollID {
	t.Helper()

	answers := make([]domain.ServerPollAnswer, 0, len(optionTexts))
	for i, text := range optionTexts {
		answers = append(answers, domain.ServerPollAnswer{Text: text, Data: strconv.Itoa(i)})
	}

	pollID := e.manager.OnServerPoll(context.Background(), domain.PollID(id), &domain.ServerPoll{
		ID:       id,
		Question: question,
		Answers:  answers,
	}, nil)
	require.Equal(t, domain.PollID(id), pollID)
	return pollID
}
