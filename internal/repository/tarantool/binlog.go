package tarantool

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Xausdorf/chatpoll/internal/repository/ttadapter"
	"github.com/Xausdorf/chatpoll/internal/usecase"
	"github.com/tarantool/go-tarantool/v2"
)

const (
	binlogSpace = "binlog"
)

// Binlog is the tarantool-backed write-ahead log. Entry ids are assigned
// from a counter seeded with the highest persisted id, so ids survive
// restarts and are never reused within a space.
type Binlog struct {
	conn *tarantool.Connection

	mu     sync.Mutex
	nextID uint64
}

// OpenBinlog scans the log space for the highest entry id and returns a
// ready-to-use log.
func OpenBinlog(ctx context.Context, conn *tarantool.Connection) (*Binlog, error) {
	b := &Binlog{
		conn:   conn,
		nextID: 1,
	}

	entries, err := b.selectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open binlog: %w", err)
	}
	for _, entry := range entries {
		if entry.ID >= b.nextID {
			b.nextID = entry.ID + 1
		}
	}
	return b, nil
}

// Events returns every persisted entry in id order for startup replay.
func (b *Binlog) Events(ctx context.Context) ([]usecase.BinlogEvent, error) {
	entries, err := b.selectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read binlog events: %w", err)
	}

	events := make([]usecase.BinlogEvent, 0, len(entries))
	for _, entry := range entries {
		events = append(events, usecase.BinlogEvent{
			ID:      entry.ID,
			Kind:    usecase.BinlogEventKind(entry.Kind),
			Payload: entry.Payload,
		})
	}
	return events, nil
}

func (b *Binlog) Add(ctx context.Context, kind usecase.BinlogEventKind, payload []byte) (uint64, error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.mu.Unlock()

	if _, err := b.conn.Do(
		tarantool.NewInsertRequest(binlogSpace).
			Context(ctx).
			Tuple(&ttadapter.BinlogTuple{ID: id, Kind: uint32(kind), Payload: payload}),
	).Get(); err != nil {
		return 0, fmt.Errorf("could not insert binlog entry in tarantool: %w", err)
	}
	return id, nil
}

func (b *Binlog) Rewrite(ctx context.Context, id uint64, kind usecase.BinlogEventKind, payload []byte) (uint64, error) {
	if _, err := b.conn.Do(
		tarantool.NewReplaceRequest(binlogSpace).
			Context(ctx).
			Tuple(&ttadapter.BinlogTuple{ID: id, Kind: uint32(kind), Payload: payload}),
	).Get(); err != nil {
		return 0, fmt.Errorf("could not rewrite binlog entry in tarantool: %w", err)
	}
	return id, nil
}

func (b *Binlog) Erase(ctx context.Context, id uint64) error {
	if _, err := b.conn.Do(
		tarantool.NewDeleteRequest(binlogSpace).
			Context(ctx).
			Index("primary").
			Key(tarantool.UintKey{I: uint(id)}),
	).Get(); err != nil {
		return fmt.Errorf("could not delete binlog entry in tarantool: %w", err)
	}
	return nil
}

func (b *Binlog) selectAll(ctx context.Context) ([]ttadapter.BinlogTuple, error) {
	var res []ttadapter.BinlogTuple
	if err := b.conn.Do(
		tarantool.NewSelectRequest(binlogSpace).
			Context(ctx).
			Index("primary").
			Iterator(tarantool.IterAll).
			Limit(math.MaxUint32).
			Key([]interface{}{}),
	).GetTyped(&res); err != nil {
		return nil, fmt.Errorf("could not select typed binlog entries in tarantool: %w", err)
	}
	return res, nil
}
