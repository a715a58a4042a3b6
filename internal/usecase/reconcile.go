package usecase

import (
	"context"
	"log/slog"

	"github.com/Xausdorf/chatpoll/internal/domain"
)

// OnServerPoll merges a server-pushed poll snapshot and/or vote tally
// into the registry. It returns the id of the reconciled poll, or zero
// when the update is inconsistent and was ignored. Notification and
// persistence fire only when a field actually changed.
func (m *PollManager) OnServerPoll(ctx context.Context, pollID domain.PollID, serverPoll *domain.ServerPoll, results *domain.ServerResults) domain.PollID {
	const op = "PollManager.OnServerPoll"

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.log.With(slog.String("op", op))

	if !pollID.IsValid() && serverPoll != nil {
		pollID = domain.PollID(serverPoll.ID)
	}
	if !pollID.IsValid() || pollID.IsLocal() {
		log.Error("received invalid poll id from server", slog.Int64("pollID", int64(pollID)))
		return 0
	}
	if serverPoll != nil && domain.PollID(serverPoll.ID) != pollID {
		log.Error("received mismatched poll from server",
			slog.Int64("pollID", int64(pollID)), slog.Int64("serverPollID", serverPoll.ID))
		return 0
	}

	poll := m.getPollForce(ctx, pollID)
	if poll == nil {
		if serverPoll == nil {
			log.Info("ignoring update for unknown poll", slog.Int64("pollID", int64(pollID)))
			return 0
		}
		poll = &domain.Poll{}
		m.polls[pollID] = poll
	}

	isChanged := false

	if serverPoll != nil {
		if poll.Question != serverPoll.Question {
			poll.Question = serverPoll.Question
			isChanged = true
		}
		if len(poll.Options) != len(serverPoll.Answers) {
			// Option order is server-authoritative; a size change
			// replaces the list wholesale and drops all tallies.
			poll.Options = make([]domain.PollOption, 0, len(serverPoll.Answers))
			for _, answer := range serverPoll.Answers {
				poll.Options = append(poll.Options, domain.PollOption{
					Text: answer.Text,
					Data: answer.Data,
				})
			}
			isChanged = true
		} else {
			for i := range poll.Options {
				if poll.Options[i].Text != serverPoll.Answers[i].Text {
					poll.Options[i].Text = serverPoll.Answers[i].Text
					isChanged = true
				}
				if poll.Options[i].Data != serverPoll.Answers[i].Data {
					// A replaced option, its tallies start over.
					poll.Options[i].Data = serverPoll.Answers[i].Data
					poll.Options[i].VoterCount = 0
					poll.Options[i].IsChosen = false
					isChanged = true
				}
			}
		}
		// A closed poll never reopens.
		if serverPoll.IsClosed && !poll.IsClosed {
			poll.IsClosed = true
			isChanged = true
		}
	}

	if results != nil {
		if results.HasTotalVoterCount && results.TotalVoterCount != poll.TotalVoterCount {
			poll.TotalVoterCount = results.TotalVoterCount
			isChanged = true
		}
		for _, result := range results.Results {
			for i := range poll.Options {
				option := &poll.Options[i]
				if option.Data != result.Data {
					continue
				}
				if !results.IsMin && option.IsChosen != result.IsChosen {
					option.IsChosen = result.IsChosen
					isChanged = true
				}
				if option.VoterCount != result.VoterCount {
					option.VoterCount = result.VoterCount
					isChanged = true
				}
			}
		}
	}

	if isChanged {
		m.notifyOnPollUpdate(pollID)
		m.savePoll(ctx, pollID, poll)
	}
	return pollID
}
