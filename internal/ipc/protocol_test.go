package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/errs"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Command{Kind: CmdPing}
	require.NoError(t, writeFrame(&buf, in))

	var out Command
	require.NoError(t, readFrame(&buf, &out))
	assert.Equal(t, CmdPing, out.Kind)
}

func TestWriteFrameLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, Response{OK: true}))

	header := buf.Bytes()[:4]
	size := binary.BigEndian.Uint32(header)
	assert.Equal(t, int(size), buf.Len()-4)
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], maxFrameSize+1)
	buf.Write(header[:])

	var out Command
	err := readFrame(&buf, &out)
	assert.True(t, errors.Is(err, errs.ErrProtocol))
}

func TestReadFrameReturnsEOFOnEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	var out Command
	err := readFrame(&buf, &out)
	assert.Error(t, err)
}

func TestReadFrameRejectsMalformedBody(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	body := []byte("not json")
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	var out Command
	err := readFrame(&buf, &out)
	assert.True(t, errors.Is(err, errs.ErrProtocol))
}
