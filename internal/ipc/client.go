package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/shortlinker/shortlinker/internal/errs"
)

// Client dials the IPC socket for a single request/response exchange per
// call, matching the protocol's one-shot-per-connection design.
type Client struct {
	socketPath     string
	defaultTimeout time.Duration
}

// NewClient builds a Client. defaultTimeout bounds every call unless a
// context deadline is already shorter.
func NewClient(socketPath string, defaultTimeout time.Duration) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Client{socketPath: socketPath, defaultTimeout: defaultTimeout}
}

// Call sends cmd and decodes the reply's Data into out (pass nil if the
// caller doesn't need the payload).
func (c *Client) Call(ctx context.Context, cmd Command, out interface{}) error {
	if !IsServerRunning(c.socketPath) {
		return errs.ErrServerNotRunning
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrServerNotRunning, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := writeFrame(conn, cmd); err != nil {
		return err
	}

	var resp Response
	if err := readFrame(conn, &resp); err != nil {
		if ctx.Err() != nil {
			return errs.ErrTimeout
		}
		return err
	}

	if !resp.OK {
		return fmt.Errorf("shortlinker: %s", resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// newCommand is a convenience for marshaling args into a Command.
func newCommand(kind CommandKind, args interface{}) (Command, error) {
	if args == nil {
		return Command{Kind: kind}, nil
	}
	body, err := json.Marshal(args)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: kind, Args: body}, nil
}
