package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/shortlinker/shortlinker/internal/errs"
)

// maxFrameSize bounds a single frame body to guard against a misbehaving
// peer driving unbounded memory growth.
const maxFrameSize = 16 * 1024 * 1024

var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// writeFrame writes a u32-be length prefix followed by the JSON encoding
// of v.
func writeFrame(w io.Writer, v interface{}) error {
	body, err := wireJSON.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", errs.ErrProtocol, err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("%w: frame too large (%d bytes)", errs.ErrProtocol, len(body))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readFrame reads one u32-be length prefix and its JSON body, unmarshaling
// into v.
func readFrame(r io.Reader, v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("%w: frame too large (%d bytes)", errs.ErrProtocol, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	if err := wireJSON.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", errs.ErrProtocol, err)
	}
	return nil
}
