package tarantool

import (
	"context"
	"fmt"

	"github.com/Xausdorf/chatpoll/internal/repository/ttadapter"
	"github.com/tarantool/go-tarantool/v2"
)

const (
	pollSpace = "polls"
)

// PollStore is the tarantool-backed key/value store of poll records.
type PollStore struct {
	conn *tarantool.Connection
}

func NewPollStore(conn *tarantool.Connection) *PollStore {
	return &PollStore{
		conn: conn,
	}
}

func (s *PollStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var res []ttadapter.RecordTuple
	if err := s.conn.Do(
		tarantool.NewSelectRequest(pollSpace).
			Context(ctx).
			Index("primary").
			Limit(1).
			Key(tarantool.StringKey{S: key}),
	).GetTyped(&res); err != nil {
		return nil, false, fmt.Errorf("could not select typed poll record in tarantool: %w", err)
	}
	if len(res) == 0 {
		return nil, false, nil
	}
	return res[0].Value, true, nil
}

func (s *PollStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.conn.Do(
		tarantool.NewReplaceRequest(pollSpace).
			Context(ctx).
			Tuple(&ttadapter.RecordTuple{Key: key, Value: value}),
	).Get(); err != nil {
		return fmt.Errorf("could not replace poll record in tarantool: %w", err)
	}
	return nil
}
