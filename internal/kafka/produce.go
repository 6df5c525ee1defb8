// Package kafka implements a minimal hand-rolled Kafka Produce-API-v0
// client (C12), used to ship completed scan reports to a broker. The
// wire format is specified byte-exact in spec.md §4.11/§6, so this is
// deliberately built on encoding/binary rather than a Kafka client
// library — there is no "idiomatic ecosystem library" to defer to when
// the whole point of the component is to hand-roll the protocol.
package kafka

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"net"
	"time"
	"unicode/utf8"

	"github.com/codenerd-labs/auditor/internal/logging"
)

// ErrorKind distinguishes transport failures from broker-reported
// protocol errors, per spec.md §4.11's failure semantics.
type ErrorKind string

const (
	ErrIo       ErrorKind = "io"
	ErrProtocol ErrorKind = "protocol"
)

// ProduceError wraps a Kafka sink failure with its taxonomy kind.
type ProduceError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProduceError) Error() string { return fmt.Sprintf("kafka %s error: %v", e.Kind, e.Err) }
func (e *ProduceError) Unwrap() error  { return e.Err }

// Request describes one Produce-v0 round trip.
type Request struct {
	Broker        string // host:port
	Topic         string
	Partition     int32
	ClientID      string
	CorrelationID int32
	TimeoutMs     int32
	Key           []byte // nil => null key
	Value         []byte
	DialTimeout   time.Duration
}

// EncodeProduceRequest builds the size-prefixed Produce-v0 request
// frame, per spec.md §4.11's wire layout. Exported standalone so tests
// can assert on byte offsets without opening a socket (spec.md §8,
// scenario 6).
func EncodeProduceRequest(req Request) []byte {
	var body bytes.Buffer

	writeInt16(&body, 0) // api_key = 0 (Produce)
	writeInt16(&body, 0) // api_version = 0
	writeInt32(&body, req.CorrelationID)
	writeString16(&body, req.ClientID)
	writeInt16(&body, 1) // acks = 1
	writeInt32(&body, req.TimeoutMs)

	writeInt32(&body, 1) // topic_count = 1
	writeString16(&body, req.Topic)

	writeInt32(&body, 1) // partition_count = 1
	writeInt32(&body, req.Partition)

	messageSet := encodeMessageSet(req.Key, req.Value)
	writeInt32(&body, int32(len(messageSet)))
	body.Write(messageSet)

	var frame bytes.Buffer
	writeInt32(&frame, int32(body.Len()))
	frame.Write(body.Bytes())
	return frame.Bytes()
}

func encodeMessageSet(key, value []byte) []byte {
	var msg bytes.Buffer
	msg.WriteByte(0) // magic = 0
	msg.WriteByte(0) // attrs = 0
	writeBytes(&msg, key)
	writeBytes(&msg, value)

	crc := crc32.ChecksumIEEE(msg.Bytes())

	var message bytes.Buffer
	writeUint32(&message, crc)
	message.Write(msg.Bytes())

	var set bytes.Buffer
	writeInt64(&set, 0) // offset = 0
	writeInt32(&set, int32(message.Len()))
	set.Write(message.Bytes())
	return set.Bytes()
}

// Response is the decoded Produce-v0 response.
type Response struct {
	CorrelationID int32
	Topic         string
	Partition     int32
	ErrorCode     int16
	Offset        int64
}

func decodeProduceResponse(r io.Reader) (*Response, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf[:]))
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	br := bytes.NewReader(body)
	var resp Response

	var corr, topicCount, partitionCount int32
	if err := binary.Read(br, binary.BigEndian, &corr); err != nil {
		return nil, err
	}
	resp.CorrelationID = corr

	if err := binary.Read(br, binary.BigEndian, &topicCount); err != nil {
		return nil, err
	}
	topic, err := readString16(br)
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(topic) {
		return nil, fmt.Errorf("response topic is not valid UTF-8")
	}
	resp.Topic = topic

	if err := binary.Read(br, binary.BigEndian, &partitionCount); err != nil {
		return nil, err
	}
	var partition int32
	if err := binary.Read(br, binary.BigEndian, &partition); err != nil {
		return nil, err
	}
	resp.Partition = partition

	var errCode int16
	if err := binary.Read(br, binary.BigEndian, &errCode); err != nil {
		return nil, err
	}
	resp.ErrorCode = errCode

	var offset int64
	if err := binary.Read(br, binary.BigEndian, &offset); err != nil {
		return nil, err
	}
	resp.Offset = offset

	return &resp, nil
}

// Produce opens a TCP connection, sends one Produce-v0 request carrying
// a single-message MessageSet, and returns the broker-assigned offset.
func Produce(req Request) (int64, error) {
	dialTimeout := req.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	conn, err := net.DialTimeout("tcp", req.Broker, dialTimeout)
	if err != nil {
		return 0, &ProduceError{Kind: ErrIo, Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Duration(req.TimeoutMs) * time.Millisecond)
	if req.TimeoutMs <= 0 {
		deadline = time.Now().Add(dialTimeout)
	}
	_ = conn.SetDeadline(deadline)

	frame := EncodeProduceRequest(req)
	if _, err := conn.Write(frame); err != nil {
		return 0, &ProduceError{Kind: ErrIo, Err: err}
	}

	resp, err := decodeProduceResponse(conn)
	if err != nil {
		return 0, &ProduceError{Kind: ErrIo, Err: err}
	}
	if resp.ErrorCode != 0 {
		logging.Kafka().Warnw("produce rejected by broker", "error_code", resp.ErrorCode, "topic", req.Topic)
		return 0, &ProduceError{Kind: ErrProtocol, Err: fmt.Errorf("broker returned error code %d", resp.ErrorCode)}
	}
	logging.Kafka().Infow("produced report", "topic", req.Topic, "partition", req.Partition, "offset", resp.Offset)
	return resp.Offset, nil
}

func writeInt16(w io.Writer, v int16)  { binary.Write(w, binary.BigEndian, v) }
func writeInt32(w io.Writer, v int32)  { binary.Write(w, binary.BigEndian, v) }
func writeInt64(w io.Writer, v int64)  { binary.Write(w, binary.BigEndian, v) }
func writeUint32(w io.Writer, v uint32) { binary.Write(w, binary.BigEndian, v) }

func writeString16(w io.Writer, s string) {
	writeInt16(w, int16(len(s)))
	io.WriteString(w, s)
}

func readString16(r io.Reader) (string, error) {
	var n int16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if n < 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeBytes encodes a KeyBytes/ValueBytes field: int32 length (-1 for
// nil) followed by the raw bytes.
func writeBytes(w io.Writer, b []byte) {
	if b == nil {
		writeInt32(w, -1)
		return
	}
	writeInt32(w, int32(len(b)))
	w.Write(b)
}
