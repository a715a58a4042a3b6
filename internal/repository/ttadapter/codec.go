package ttadapter

import (
	"fmt"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec translates domain records to and from their durable msgpack
// representation.
type Codec struct{}

func NewCodec() Codec {
	return Codec{}
}

func (Codec) EncodePoll(poll *domain.Poll) ([]byte, error) {
	value, err := msgpack.Marshal(NewPollRecord(poll))
	if err != nil {
		return nil, fmt.Errorf("could not encode poll record: %w", err)
	}
	return value, nil
}

func (Codec) DecodePoll(value []byte) (*domain.Poll, error) {
	var record PollRecord
	if err := msgpack.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("could not decode poll record: %w", err)
	}
	return record.ToPoll(), nil
}

func (Codec) EncodeSetAnswerEvent(event *domain.SetAnswerEvent) ([]byte, error) {
	payload, err := msgpack.Marshal(NewSetAnswerEventRecord(event))
	if err != nil {
		return nil, fmt.Errorf("could not encode set answer event: %w", err)
	}
	return payload, nil
}

func (Codec) DecodeSetAnswerEvent(payload []byte) (*domain.SetAnswerEvent, error) {
	var record SetAnswerEventRecord
	if err := msgpack.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("could not decode set answer event: %w", err)
	}
	return record.ToSetAnswerEvent(), nil
}
