// Package ipc implements the Unix-domain-socket control channel used by
// the CLI to talk to a running server process: status, reload, config and
// link CRUD, and shutdown.
package ipc

import (
	"encoding/json"
	"time"

	"github.com/shortlinker/shortlinker/internal/models"
)

// CommandKind names an IPC request's operation.
type CommandKind string

const (
	CmdPing         CommandKind = "ping"
	CmdGetStatus    CommandKind = "get_status"
	CmdReload       CommandKind = "reload"
	CmdConfigGet    CommandKind = "config_get"
	CmdConfigSet    CommandKind = "config_set"
	CmdConfigReset  CommandKind = "config_reset"
	CmdConfigList   CommandKind = "config_list"
	CmdLinkGet      CommandKind = "link_get"
	CmdLinkSet      CommandKind = "link_set"
	CmdLinkRemove   CommandKind = "link_remove"
	CmdLinkList     CommandKind = "link_list"
	CmdBatchDelete  CommandKind = "link_batch_delete"
	CmdLinkExport   CommandKind = "link_export"
	CmdLinkImport   CommandKind = "link_import"
	CmdShutdown     CommandKind = "shutdown"
)

// Command is one request frame. Args is kind-specific and decoded by the
// handler for the matching Kind.
type Command struct {
	Kind CommandKind     `json:"kind"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is one reply frame.
type Response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReloadArgs carries the reload target.
type ReloadArgs struct {
	Target string `json:"target"` // "data", "config", or "all"
}

// ConfigGetArgs / ConfigSetArgs / ConfigResetArgs address one system_config key.
type ConfigGetArgs struct {
	Key string `json:"key"`
}

type ConfigSetArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Actor string `json:"actor"`
}

type ConfigResetArgs struct {
	Key   string `json:"key"`
	Actor string `json:"actor"`
}

// LinkGetArgs / LinkRemoveArgs address one short code.
type LinkGetArgs struct {
	Code string `json:"code"`
}

type LinkRemoveArgs struct {
	Code string `json:"code"`
}

// LinkSetArgs creates or updates a link.
type LinkSetArgs struct {
	Code      string     `json:"code"`
	Target    string     `json:"target"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Password  *string    `json:"password,omitempty"` // nil = unchanged, "" = remove
}

// LinkListArgs mirrors models.ListFilter over the wire.
type LinkListArgs struct {
	Query    string `json:"query,omitempty"`
	OnlyActive  bool `json:"only_active,omitempty"`
	OnlyExpired bool `json:"only_expired,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// BatchDeleteArgs removes many codes in one call.
type BatchDeleteArgs struct {
	Codes []string `json:"codes"`
}

// LinkImportArgs bulk-loads links, format-agnostic at this layer (the CLI
// parses a JSON file client-side into this shape).
type LinkImportArgs struct {
	Links []models.ShortLink `json:"links"`
	Mode  string             `json:"mode"` // "skip" or "overwrite"
}

// StatusReply answers GetStatus.
type StatusReply struct {
	Version      string    `json:"version"`
	UptimeSecs   int64     `json:"uptime_secs"`
	LinkCount    int       `json:"link_count"`
	LastReload   time.Time `json:"last_reload"`
}
