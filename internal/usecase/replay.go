package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// OnBinlogEvents re-drives persisted write-ahead log entries on startup.
// Every surviving set-answer entry re-issues its remote call under the
// entry's own id, so no duplicate entry is created and no caller needs
// to be waiting. Entries found while persistence is disabled are stray
// and simply erased.
func (m *PollManager) OnBinlogEvents(ctx context.Context, events []BinlogEvent) error {
	const op = "PollManager.OnBinlogEvents"

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, event := range events {
		switch event.Kind {
		case BinlogEventSetAnswer:
			if !m.storageEnabled {
				if err := m.binlog.Erase(ctx, event.ID); err != nil {
					return fmt.Errorf("%s: failed to erase stray binlog event %d: %w", op, event.ID, err)
				}
				continue
			}

			setAnswer, err := m.codec.DecodeSetAnswerEvent(event.Payload)
			if err != nil {
				panic(fmt.Sprintf("%s: corrupted set answer binlog event %d: %v", op, event.ID, err))
			}

			if err := m.resolver.ResolveMessageDependencies(ctx, setAnswer.MessageID); err != nil {
				return fmt.Errorf("%s: failed to resolve dependencies of binlog event %d: %w", op, event.ID, err)
			}

			m.log.Info("replaying set answer binlog event",
				slog.Uint64("binlogID", event.ID), slog.Int64("pollID", int64(setAnswer.PollID)))
			m.doSetAnswer(ctx, setAnswer.PollID, setAnswer.MessageID, setAnswer.Options, event.ID, nil)
		default:
			return fmt.Errorf("%s: unsupported binlog event kind %d", op, event.Kind)
		}
	}
	return nil
}
