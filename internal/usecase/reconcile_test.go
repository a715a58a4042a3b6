package usecase

import (
	"context"
	"testing"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/Xausdorf/chatpoll/internal/repository/ttadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverPollWith(id int64, question string, answers ...domain.ServerPollAnswer) *domain.ServerPoll {
	return &domain.ServerPoll{ID: id, Question: question, Answers: answers}
}

func TestOnServerPoll_AdoptsEmbeddedIdentity(t *testing.T) {
	env := newTestEnv(t)

	pollID := env.manager.OnServerPoll(context.Background(), 0,
		serverPollWith(7, "q", domain.ServerPollAnswer{Text: "A", Data: "0"}), nil)

	assert.Equal(t, domain.PollID(7), pollID)
	assert.True(t, env.manager.HasPoll(7))
}

func TestOnServerPoll_RejectsInvalidIdentity(t *testing.T) {
	env := newTestEnv(t)

	assert.Zero(t, env.manager.OnServerPoll(context.Background(), 0, nil, &domain.ServerResults{}))
	assert.Zero(t, env.manager.OnServerPoll(context.Background(), -5,
		serverPollWith(-5, "q"), nil))
}

func TestOnServerPoll_RejectsMismatchedIdentity(t *testing.T) {
	env := newTestEnv(t)

	pollID := env.manager.OnServerPoll(context.Background(), 7, serverPollWith(8, "q"), nil)
	assert.Zero(t, pollID)
	assert.False(t, env.manager.HasPoll(7))
	assert.False(t, env.manager.HasPoll(8))
}

func TestOnServerPoll_IgnoresResultsForUnknownPoll(t *testing.T) {
	env := newTestEnv(t)

	pollID := env.manager.OnServerPoll(context.Background(), 7, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "0", VoterCount: 1}},
	})
	assert.Zero(t, pollID)
	assert.False(t, env.manager.HasPoll(7))
}

func TestOnServerPoll_IdempotentSnapshot(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")
	require.NoError(t, env.manager.RegisterPoll(pollID, testMessageID))

	snapshot := serverPollWith(1, "q",
		domain.ServerPollAnswer{Text: "A", Data: "0"},
		domain.ServerPollAnswer{Text: "B", Data: "1"})
	results := &domain.ServerResults{
		HasTotalVoterCount: true,
		TotalVoterCount:    3,
		Results:            []domain.ServerAnswerVoters{{Data: "0", VoterCount: 3}},
	}

	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, snapshot, results))
	notifications := len(env.notifier.notified)
	saves := env.store.sets

	// The same snapshot again changes nothing: no notification, no write.
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, snapshot, results))
	assert.Equal(t, notifications, len(env.notifier.notified))
	assert.Equal(t, saves, env.store.sets)
}

func TestOnServerPoll_MinResultsPreserveChosenFlag(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")

	// Confirm the own vote on option "0" with 5 voters.
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "0", VoterCount: 5, IsChosen: true}},
	}))
	require.NoError(t, env.manager.RegisterPoll(pollID, testMessageID))

	// An anonymized tally bumps the count but must not touch the flag.
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		IsMin:   true,
		Results: []domain.ServerAnswerVoters{{Data: "0", VoterCount: 6}},
	}))

	view, err := env.manager.GetPollView(pollID)
	require.NoError(t, err)
	assert.Equal(t, int32(6), view.Options[0].VoterCount)
	assert.True(t, view.Options[0].IsChosen)
	assert.Len(t, env.notifier.notified, 1)
}

func TestOnServerPoll_OptionCountChangeReplacesWholesale(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "0", VoterCount: 5, IsChosen: true}},
	}))

	// A third option arrives, the list is rebuilt and all tallies drop.
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, serverPollWith(1, "q",
		domain.ServerPollAnswer{Text: "A", Data: "0"},
		domain.ServerPollAnswer{Text: "B", Data: "1"},
		domain.ServerPollAnswer{Text: "C", Data: "2"}), nil))

	view, err := env.manager.GetPollView(pollID)
	require.NoError(t, err)
	require.Len(t, view.Options, 3)
	assert.Zero(t, view.Options[0].VoterCount)
	assert.False(t, view.Options[0].IsChosen)
}

func TestOnServerPoll_OptionKeyChangeResetsTallies(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "0", VoterCount: 5, IsChosen: true}},
	}))
	require.NoError(t, env.manager.RegisterPoll(pollID, testMessageID))

	// Same option count, but option "0" was replaced by key "2".
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, serverPollWith(1, "q",
		domain.ServerPollAnswer{Text: "A2", Data: "2"},
		domain.ServerPollAnswer{Text: "B", Data: "1"}), nil))

	view, err := env.manager.GetPollView(pollID)
	require.NoError(t, err)
	assert.Equal(t, "A2", view.Options[0].Text)
	assert.Equal(t, "2", view.Options[0].Data)
	assert.Zero(t, view.Options[0].VoterCount)
	assert.False(t, view.Options[0].IsChosen)
	assert.Len(t, env.notifier.notified, 1)
}

func TestOnServerPoll_TotalVotersAppliedOnlyWhenCarried(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")

	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		HasTotalVoterCount: true,
		TotalVoterCount:    10,
	}))
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		TotalVoterCount: 99,
	}))

	view, err := env.manager.GetPollView(pollID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), view.TotalVoterCount)
}

func TestOnServerPoll_UnmatchedTallyEntryIgnored(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")
	require.NoError(t, env.manager.RegisterPoll(pollID, testMessageID))
	notifications := len(env.notifier.notified)

	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "no-such-key", VoterCount: 7}},
	}))
	assert.Equal(t, notifications, len(env.notifier.notified))
}

func TestOnServerPoll_ClosedIsNeverCleared(t *testing.T) {
	env := newTestEnv(t)
	pollID := env.seedRemotePoll(t, 1, "q", "A", "B")

	closed := serverPollWith(1, "q",
		domain.ServerPollAnswer{Text: "A", Data: "0"},
		domain.ServerPollAnswer{Text: "B", Data: "1"})
	closed.IsClosed = true
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, closed, nil))

	reopened := serverPollWith(1, "q",
		domain.ServerPollAnswer{Text: "A", Data: "0"},
		domain.ServerPollAnswer{Text: "B", Data: "1"})
	require.Equal(t, pollID, env.manager.OnServerPoll(context.Background(), pollID, reopened, nil))

	view, err := env.manager.GetPollView(pollID)
	require.NoError(t, err)
	assert.True(t, view.IsClosed)
}

func TestOnServerPoll_LoadsPollFromStore(t *testing.T) {
	env := newTestEnv(t)

	value, err := ttadapter.NewCodec().EncodePoll(&domain.Poll{
		Question: "persisted",
		Options: []domain.PollOption{
			{Text: "A", Data: "0", VoterCount: 5, IsChosen: true},
			{Text: "B", Data: "1"},
		},
		TotalVoterCount: 5,
	})
	require.NoError(t, err)
	env.store.data["poll42"] = value

	pollID := env.manager.OnServerPoll(context.Background(), 42, nil, &domain.ServerResults{
		Results: []domain.ServerAnswerVoters{{Data: "1", VoterCount: 2}},
	})
	require.Equal(t, domain.PollID(42), pollID)

	view, err := env.manager.GetPollView(42)
	require.NoError(t, err)
	assert.Equal(t, "persisted", view.Question)
	assert.Equal(t, int32(2), view.Options[1].VoterCount)
}

func TestOnServerPoll_StoreMissIsAttemptedOnce(t *testing.T) {
	env := newTestEnv(t)

	env.manager.OnServerPoll(context.Background(), 43, nil, &domain.ServerResults{})
	env.manager.OnServerPoll(context.Background(), 43, nil, &domain.ServerResults{})

	assert.Equal(t, 1, env.store.gets)
}
