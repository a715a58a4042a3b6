package usecase

import (
	"slices"

	"github.com/Xausdorf/chatpoll/internal/domain"
)

// GetPollView renders the externally visible snapshot of a poll. When a
// vote is pending, the snapshot shows it as if it already landed: the
// pending options are chosen, the confirmed own vote is subtracted and
// the optimistic one added, without touching the registry state.
func (m *PollManager) GetPollView(pollID domain.PollID) (*domain.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	poll := m.getPoll(pollID)
	if poll == nil {
		return nil, ErrPollNotFound
	}

	pending, ok := m.pendingAnswers[pollID]
	if !ok {
		return poll.Clone(), nil
	}

	voterCountDiff := int32(0)
	options := make([]domain.PollOption, 0, len(poll.Options))
	for _, option := range poll.Options {
		isChosen := slices.Contains(pending.options, option.Data)
		voterCount := option.VoterCount
		if option.IsChosen {
			voterCountDiff = -1
			voterCount--
		}
		if isChosen {
			voterCount++
		}
		options = append(options, domain.PollOption{
			Text:       option.Text,
			Data:       option.Data,
			VoterCount: voterCount,
			IsChosen:   isChosen,
		})
	}
	if len(pending.options) > 0 {
		voterCountDiff++
	}

	return &domain.Poll{
		Question:        poll.Question,
		Options:         options,
		TotalVoterCount: poll.TotalVoterCount + voterCountDiff,
		IsClosed:        poll.IsClosed,
	}, nil
}
