package ttadapter

import (
	"fmt"

	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// PollRecord is the durable representation of a confirmed poll.
type PollRecord struct {
	Question        string
	Options         []PollOptionRecord
	TotalVoterCount int32
	IsClosed        bool
}

type PollOptionRecord struct {
	Text       string
	Data       string
	VoterCount int32
	IsChosen   bool
}

// SetAnswerEventRecord is the durable representation of an in-flight
// vote submission in the write-ahead log.
type SetAnswerEventRecord struct {
	PollID    int64
	ChatID    int64
	MessageID int64
	Options   []string
}

const (
	pollRecordFields       = 4
	pollOptionRecordFields = 4
	setAnswerEventFields   = 4
)

func NewPollRecord(poll *domain.Poll) *PollRecord {
	options := make([]PollOptionRecord, 0, len(poll.Options))
	for _, option := range poll.Options {
		options = append(options, PollOptionRecord{
			Text:       option.Text,
			Data:       option.Data,
			VoterCount: option.VoterCount,
			IsChosen:   option.IsChosen,
		})
	}
	return &PollRecord{
		Question:        poll.Question,
		Options:         options,
		TotalVoterCount: poll.TotalVoterCount,
		IsClosed:        poll.IsClosed,
	}
}

func (p *PollRecord) ToPoll() *domain.Poll {
	options := make([]domain.PollOption, 0, len(p.Options))
	for _, option := range p.Options {
		options = append(options, domain.PollOption{
			Text:       option.Text,
			Data:       option.Data,
			VoterCount: option.VoterCount,
			IsChosen:   option.IsChosen,
		})
	}
	return &domain.Poll{
		Question:        p.Question,
		Options:         options,
		TotalVoterCount: p.TotalVoterCount,
		IsClosed:        p.IsClosed,
	}
}

func (p *PollRecord) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(pollRecordFields); err != nil {
		return err
	}
	if err := e.EncodeString(p.Question); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(p.Options)); err != nil {
		return err
	}
	for i := range p.Options {
		if err := p.Options[i].EncodeMsgpack(e); err != nil {
			return err
		}
	}
	if err := e.EncodeInt32(p.TotalVoterCount); err != nil {
		return err
	}
	if err := e.EncodeBool(p.IsClosed); err != nil {
		return err
	}
	return nil
}

func (p *PollRecord) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != pollRecordFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if p.Question, err = d.DecodeString(); err != nil {
		return err
	}
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	p.Options = make([]PollOptionRecord, l)
	for i := 0; i < l; i++ {
		if err = p.Options[i].DecodeMsgpack(d); err != nil {
			return err
		}
	}
	if p.TotalVoterCount, err = d.DecodeInt32(); err != nil {
		return err
	}
	if p.IsClosed, err = d.DecodeBool(); err != nil {
		return err
	}
	return nil
}

func (o *PollOptionRecord) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(pollOptionRecordFields); err != nil {
		return err
	}
	if err := e.EncodeString(o.Text); err != nil {
		return err
	}
	if err := e.EncodeString(o.Data); err != nil {
		return err
	}
	if err := e.EncodeInt32(o.VoterCount); err != nil {
		return err
	}
	if err := e.EncodeBool(o.IsChosen); err != nil {
		return err
	}
	return nil
}

func (o *PollOptionRecord) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != pollOptionRecordFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if o.Text, err = d.DecodeString(); err != nil {
		return err
	}
	if o.Data, err = d.DecodeString(); err != nil {
		return err
	}
	if o.VoterCount, err = d.DecodeInt32(); err != nil {
		return err
	}
	if o.IsChosen, err = d.DecodeBool(); err != nil {
		return err
	}
	return nil
}

func NewSetAnswerEventRecord(event *domain.SetAnswerEvent) *SetAnswerEventRecord {
	return &SetAnswerEventRecord{
		PollID:    int64(event.PollID),
		ChatID:    event.MessageID.ChatID,
		MessageID: event.MessageID.MessageID,
		Options:   event.Options,
	}
}

func (r *SetAnswerEventRecord) ToSetAnswerEvent() *domain.SetAnswerEvent {
	return &domain.SetAnswerEvent{
		PollID: domain.PollID(r.PollID),
		MessageID: domain.FullMessageID{
			ChatID:    r.ChatID,
			MessageID: r.MessageID,
		},
		Options: r.Options,
	}
}

func (r *SetAnswerEventRecord) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(setAnswerEventFields); err != nil {
		return err
	}
	if err := e.EncodeInt(r.PollID); err != nil {
		return err
	}
	if err := e.EncodeInt(r.ChatID); err != nil {
		return err
	}
	if err := e.EncodeInt(r.MessageID); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(r.Options)); err != nil {
		return err
	}
	for _, option := range r.Options {
		if err := e.EncodeString(option); err != nil {
			return err
		}
	}
	return nil
}

func (r *SetAnswerEventRecord) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != setAnswerEventFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if r.PollID, err = d.DecodeInt64(); err != nil {
		return err
	}
	if r.ChatID, err = d.DecodeInt64(); err != nil {
		return err
	}
	if r.MessageID, err = d.DecodeInt64(); err != nil {
		return err
	}
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	r.Options = make([]string, l)
	for i := 0; i < l; i++ {
		if r.Options[i], err = d.DecodeString(); err != nil {
			return err
		}
	}
	return nil
}
