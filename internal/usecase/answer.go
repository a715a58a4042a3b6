package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Xausdorf/chatpoll/internal/domain"
)

// SetAnswer submits the user's vote for a poll displayed by the given
// message. Validation failures are reported synchronously and leave no
// state behind; the remote outcome is delivered to complete exactly once.
// complete may be nil when the caller does not care about the outcome.
func (m *PollManager) SetAnswer(ctx context.Context, pollID domain.PollID, messageID domain.FullMessageID, optionIDs []int32, complete func(err error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(optionIDs) > 1 {
		return ErrTooManyOptions
	}
	if pollID.IsLocal() {
		return ErrLocalPoll
	}

	poll := m.getPoll(pollID)
	if poll == nil {
		return ErrPollNotFound
	}
	if poll.IsClosed {
		return ErrPollClosed
	}

	options := make([]string, 0, len(optionIDs))
	for _, optionID := range optionIDs {
		if optionID < 0 || int(optionID) >= len(poll.Options) {
			return ErrNoSuchOption
		}
		options = append(options, poll.Options[optionID].Data)
	}

	m.doSetAnswer(ctx, pollID, messageID, options, 0, complete)
	return nil
}

// doSetAnswer is the coalescing core. A submission identical to the live
// pending answer joins its waiter list; anything else supersedes it: the
// log entry is added or rewritten in place, the in-flight remote call is
// canceled, the displaced waiters are resolved as successful and a fresh
// generation is issued for the new call. binlogID is non-zero only when
// re-driving a persisted entry during crash recovery.
//
// Caller must hold m.mu.
func (m *PollManager) doSetAnswer(ctx context.Context, pollID domain.PollID, messageID domain.FullMessageID, options []string, binlogID uint64, complete func(err error)) {
	const op = "PollManager.doSetAnswer"

	if complete == nil {
		complete = func(error) {}
	}

	pending, ok := m.pendingAnswers[pollID]
	if !ok {
		pending = &pendingAnswer{}
		m.pendingAnswers[pollID] = pending
	}

	if len(pending.waiters) > 0 && slices.Equal(pending.options, options) {
		pending.waiters = append(pending.waiters, complete)
		return
	}

	if binlogID == 0 && m.storageEnabled {
		payload, err := m.codec.EncodeSetAnswerEvent(&domain.SetAnswerEvent{
			PollID:    pollID,
			MessageID: messageID,
			Options:   options,
		})
		if err != nil {
			panic(fmt.Sprintf("%s: failed to encode set answer event: %v", op, err))
		}

		if pending.generation == 0 {
			binlogID, err = m.binlog.Add(ctx, BinlogEventSetAnswer, payload)
			if err != nil {
				panic(fmt.Sprintf("%s: failed to add set answer binlog event: %v", op, err))
			}
			m.log.Info("added set answer binlog event", slog.Uint64("binlogID", binlogID))
		} else {
			// The poll keeps its single live entry, rewritten in place.
			newID, err := m.binlog.Rewrite(ctx, pending.binlogID, BinlogEventSetAnswer, payload)
			if err != nil {
				panic(fmt.Sprintf("%s: failed to rewrite set answer binlog event: %v", op, err))
			}
			binlogID = pending.binlogID
			m.log.Info("rewrote set answer binlog event",
				slog.Uint64("binlogID", pending.binlogID), slog.Uint64("newBinlogID", newID))
		}
	}

	if len(pending.waiters) > 0 {
		// The displaced submission is subsumed by this one, not failed.
		pending.cancelCall()
		pending.cancelCall = nil

		waiters := pending.waiters
		pending.waiters = nil
		for _, waiter := range waiters {
			waiter(nil)
		}
	}

	m.currentGeneration++
	generation := m.currentGeneration

	pending.options = options
	pending.waiters = []func(error){complete}
	pending.generation = generation
	pending.binlogID = binlogID

	m.notifyOnPollUpdate(pollID)

	pending.cancelCall = m.transport.SubmitVote(ctx, messageID, options, func(err error) {
		m.onSetAnswerResult(pollID, generation, err)
	})
}

// onSetAnswerResult handles the completion of a remote vote call issued
// at the given generation. Completions of superseded calls carry a stale
// generation and are discarded: cancellation does not guarantee their
// callback never fires, the generation match does.
func (m *PollManager) onSetAnswerResult(pollID domain.PollID, generation uint64, err error) {
	const op = "PollManager.onSetAnswerResult"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing && err != nil {
		// The log entry survives, the request is resent after restart.
		return
	}

	pending, ok := m.pendingAnswers[pollID]
	if !ok {
		return
	}
	if pending.generation != generation {
		return
	}

	if pending.binlogID != 0 {
		m.log.Info("erasing set answer binlog event", slog.String("op", op), slog.Uint64("binlogID", pending.binlogID))
		if eraseErr := m.binlog.Erase(context.Background(), pending.binlogID); eraseErr != nil {
			panic(fmt.Sprintf("%s: failed to erase binlog event %d: %v", op, pending.binlogID, eraseErr))
		}
	}

	waiters := pending.waiters
	delete(m.pendingAnswers, pollID)
	for _, waiter := range waiters {
		waiter(err)
	}
}
