package kafka

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeProduceRequestFrameLayout(t *testing.T) {
	frame := EncodeProduceRequest(Request{
		Topic: "audit-reports", Partition: 0, ClientID: "auditor",
		CorrelationID: 42, TimeoutMs: 1000,
		Key: []byte("scan-1"), Value: []byte(`{"summary":{}}`),
	})

	require.Greater(t, len(frame), 4)
	size := int32(binary.BigEndian.Uint32(frame[:4]))
	assert.Equal(t, int(size), len(frame)-4)

	body := bytes.NewReader(frame[4:])
	var apiKey, apiVersion int16
	require.NoError(t, binary.Read(body, binary.BigEndian, &apiKey))
	require.NoError(t, binary.Read(body, binary.BigEndian, &apiVersion))
	assert.EqualValues(t, 0, apiKey)
	assert.EqualValues(t, 0, apiVersion)

	var correlationID int32
	require.NoError(t, binary.Read(body, binary.BigEndian, &correlationID))
	assert.EqualValues(t, 42, correlationID)
}

func TestEncodeMessageSetCRC(t *testing.T) {
	set := encodeMessageSet([]byte("key"), []byte("value"))

	// offset(8) + message_size(4) precede the crc32-prefixed message body.
	require.Greater(t, len(set), 12)
	message := set[12:]
	storedCRC := binary.BigEndian.Uint32(message[:4])
	expectedCRC := crc32.ChecksumIEEE(message[4:])
	assert.Equal(t, expectedCRC, storedCRC)
}

func TestDecodeProduceResponseRoundTrip(t *testing.T) {
	var body bytes.Buffer
	writeInt32(&body, 42)                // correlation id
	writeInt32(&body, 1)                 // topic count
	writeString16(&body, "audit-reports") // topic name
	writeInt32(&body, 1)                 // partition count
	writeInt32(&body, 0)                 // partition
	writeInt16(&body, 0)                 // error code
	writeInt64(&body, 17)                // offset

	var frame bytes.Buffer
	writeInt32(&frame, int32(body.Len()))
	frame.Write(body.Bytes())

	resp, err := decodeProduceResponse(bytes.NewReader(frame.Bytes()))
	require.NoError(t, err)
	assert.EqualValues(t, 42, resp.CorrelationID)
	assert.Equal(t, "audit-reports", resp.Topic)
	assert.EqualValues(t, 0, resp.ErrorCode)
	assert.EqualValues(t, 17, resp.Offset)
}

func TestDecodeProduceResponseErrorCode(t *testing.T) {
	var body bytes.Buffer
	writeInt32(&body, 1)
	writeInt32(&body, 1)
	writeString16(&body, "audit-reports")
	writeInt32(&body, 1)
	writeInt32(&body, 0)
	writeInt16(&body, 3) // UNKNOWN_TOPIC_OR_PARTITION
	writeInt64(&body, -1)

	var frame bytes.Buffer
	writeInt32(&frame, int32(body.Len()))
	frame.Write(body.Bytes())

	resp, err := decodeProduceResponse(bytes.NewReader(frame.Bytes()))
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.ErrorCode)
}
