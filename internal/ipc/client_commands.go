package ipc

import (
	"context"
	"time"

	"github.com/shortlinker/shortlinker/internal/models"
)

// Ping checks that the server is alive and speaking the protocol.
func (c *Client) Ping(ctx context.Context) error {
	cmd, _ := newCommand(CmdPing, nil)
	return c.Call(ctx, cmd, nil)
}

// Status fetches the server's current status.
func (c *Client) Status(ctx context.Context) (*StatusReply, error) {
	cmd, _ := newCommand(CmdGetStatus, nil)
	var out StatusReply
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload requests a reload of the given target ("data", "config", "all").
// Without a caller deadline it allows 30s, or the client default if longer.
func (c *Client) Reload(ctx context.Context, target string) error {
	cmd, err := newCommand(CmdReload, ReloadArgs{Target: target})
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		timeout := 30 * time.Second
		if c.defaultTimeout > timeout {
			timeout = c.defaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Call(ctx, cmd, nil)
}

// ConfigGet fetches one config value.
func (c *Client) ConfigGet(ctx context.Context, key string) (*models.ConfigEntry, error) {
	cmd, err := newCommand(CmdConfigGet, ConfigGetArgs{Key: key})
	if err != nil {
		return nil, err
	}
	var out models.ConfigEntry
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfigSet sets a config value.
func (c *Client) ConfigSet(ctx context.Context, key, value, actor string) error {
	cmd, err := newCommand(CmdConfigSet, ConfigSetArgs{Key: key, Value: value, Actor: actor})
	if err != nil {
		return err
	}
	return c.Call(ctx, cmd, nil)
}

// ConfigReset clears a config value by storing the empty string.
func (c *Client) ConfigReset(ctx context.Context, key, actor string) error {
	cmd, err := newCommand(CmdConfigReset, ConfigResetArgs{Key: key, Actor: actor})
	if err != nil {
		return err
	}
	return c.Call(ctx, cmd, nil)
}

// ConfigList lists every config entry.
func (c *Client) ConfigList(ctx context.Context) ([]models.ConfigEntry, error) {
	cmd, _ := newCommand(CmdConfigList, nil)
	var out []models.ConfigEntry
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LinkGet fetches one link by code.
func (c *Client) LinkGet(ctx context.Context, code string) (*models.ShortLink, error) {
	cmd, err := newCommand(CmdLinkGet, LinkGetArgs{Code: code})
	if err != nil {
		return nil, err
	}
	var out models.ShortLink
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkSet creates or updates a link.
func (c *Client) LinkSet(ctx context.Context, args LinkSetArgs) error {
	cmd, err := newCommand(CmdLinkSet, args)
	if err != nil {
		return err
	}
	return c.Call(ctx, cmd, nil)
}

// LinkRemove deletes a link by code.
func (c *Client) LinkRemove(ctx context.Context, code string) error {
	cmd, err := newCommand(CmdLinkRemove, LinkRemoveArgs{Code: code})
	if err != nil {
		return err
	}
	return c.Call(ctx, cmd, nil)
}

// LinkList lists links matching the given filter args.
func (c *Client) LinkList(ctx context.Context, args LinkListArgs) ([]models.ShortLink, error) {
	cmd, err := newCommand(CmdLinkList, args)
	if err != nil {
		return nil, err
	}
	var out []models.ShortLink
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchDelete removes many codes in one call.
func (c *Client) BatchDelete(ctx context.Context, codes []string) (int, error) {
	cmd, err := newCommand(CmdBatchDelete, BatchDeleteArgs{Codes: codes})
	if err != nil {
		return 0, err
	}
	var count int
	if err := c.Call(ctx, cmd, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Export fetches every link for client-side serialization (the CLI writes JSON).
func (c *Client) Export(ctx context.Context) ([]models.ShortLink, error) {
	cmd, _ := newCommand(CmdLinkExport, nil)
	var out []models.ShortLink
	if err := c.Call(ctx, cmd, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Import bulk-loads links parsed client-side (the CLI reads a JSON file).
func (c *Client) Import(ctx context.Context, links []models.ShortLink, mode string) (int, error) {
	cmd, err := newCommand(CmdLinkImport, LinkImportArgs{Links: links, Mode: mode})
	if err != nil {
		return 0, err
	}
	var count int
	if err := c.Call(ctx, cmd, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Shutdown asks the server to terminate gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	cmd, _ := newCommand(CmdShutdown, nil)
	return c.Call(ctx, cmd, nil)
}
