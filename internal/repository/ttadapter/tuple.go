package ttadapter

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RecordTuple is a tuple of the poll record space: a string key with an
// opaque encoded value.
type RecordTuple struct {
	Key   string
	Value []byte
}

// BinlogTuple is a tuple of the write-ahead log space.
type BinlogTuple struct {
	ID      uint64
	Kind    uint32
	Payload []byte
}

const (
	recordTupleFields = 2
	binlogTupleFields = 3
)

func (t *RecordTuple) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(recordTupleFields); err != nil {
		return err
	}
	if err := e.EncodeString(t.Key); err != nil {
		return err
	}
	if err := e.EncodeBytes(t.Value); err != nil {
		return err
	}
	return nil
}

func (t *RecordTuple) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != recordTupleFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if t.Key, err = d.DecodeString(); err != nil {
		return err
	}
	if t.Value, err = d.DecodeBytes(); err != nil {
		return err
	}
	return nil
}

func (t *BinlogTuple) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(binlogTupleFields); err != nil {
		return err
	}
	if err := e.EncodeUint64(t.ID); err != nil {
		return err
	}
	if err := e.EncodeUint32(t.Kind); err != nil {
		return err
	}
	if err := e.EncodeBytes(t.Payload); err != nil {
		return err
	}
	return nil
}

func (t *BinlogTuple) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != binlogTupleFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if t.ID, err = d.DecodeUint64(); err != nil {
		return err
	}
	if t.Kind, err = d.DecodeUint32(); err != nil {
		return err
	}
	if t.Payload, err = d.DecodeBytes(); err != nil {
		return err
	}
	return nil
}
