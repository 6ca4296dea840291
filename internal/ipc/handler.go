package ipc

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/password"
	"github.com/shortlinker/shortlinker/internal/reload"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// CommandHandler implements Handler by dispatching each Command to the
// storage gateway, composite cache and reload coordinator.
type CommandHandler struct {
	store     storage.Gateway
	cache     *cache.Composite
	coord     *reload.Coordinator
	startedAt time.Time
	shutdown  chan struct{}
	log       *zap.Logger
}

// NewCommandHandler builds the default server-side dispatcher.
func NewCommandHandler(store storage.Gateway, c *cache.Composite, coord *reload.Coordinator, log *zap.Logger) *CommandHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandHandler{
		store:     store,
		cache:     c,
		coord:     coord,
		startedAt: time.Now(),
		shutdown:  make(chan struct{}),
		log:       log,
	}
}

// Done returns a channel closed once a Shutdown command has been received.
func (h *CommandHandler) Done() <-chan struct{} { return h.shutdown }

func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	switch cmd.Kind {
	case CmdPing:
		return ok(nil)
	case CmdGetStatus:
		return h.handleStatus(ctx)
	case CmdReload:
		return h.handleReload(ctx, cmd)
	case CmdConfigGet:
		return h.handleConfigGet(ctx, cmd)
	case CmdConfigSet:
		return h.handleConfigSet(ctx, cmd)
	case CmdConfigReset:
		return h.handleConfigReset(ctx, cmd)
	case CmdConfigList:
		return h.handleConfigList(ctx)
	case CmdLinkGet:
		return h.handleLinkGet(ctx, cmd)
	case CmdLinkSet:
		return h.handleLinkSet(ctx, cmd)
	case CmdLinkRemove:
		return h.handleLinkRemove(ctx, cmd)
	case CmdLinkList:
		return h.handleLinkList(ctx, cmd)
	case CmdBatchDelete:
		return h.handleBatchDelete(ctx, cmd)
	case CmdLinkExport:
		return h.handleExport(ctx)
	case CmdLinkImport:
		return h.handleImport(ctx, cmd)
	case CmdShutdown:
		return h.handleShutdown()
	default:
		return fail(errs.ErrProtocol)
	}
}

func ok(data interface{}) Response {
	if data == nil {
		return Response{OK: true}
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fail(err)
	}
	return Response{OK: true, Data: body}
}

func fail(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

func (h *CommandHandler) handleStatus(ctx context.Context) Response {
	codes, err := h.store.LoadAllCodes(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(StatusReply{
		Version:    "1",
		UptimeSecs: int64(time.Since(h.startedAt).Seconds()),
		LinkCount:  len(codes),
	})
}

func (h *CommandHandler) handleReload(ctx context.Context, cmd Command) Response {
	var args ReloadArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	var target reload.Target
	switch args.Target {
	case "data":
		target = reload.TargetData
	case "config":
		target = reload.TargetConfig
	case "all", "":
		target = reload.TargetAll
	default:
		return fail(errs.ErrValidation)
	}
	result, err := h.coord.Reload(ctx, target)
	if err != nil {
		return fail(err)
	}
	return ok(result)
}

func (h *CommandHandler) handleConfigGet(ctx context.Context, cmd Command) Response {
	var args ConfigGetArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	entry, err := h.store.ReadConfig(ctx, args.Key)
	if err != nil {
		return fail(err)
	}
	redacted := redactConfigEntry(*entry)
	return ok(&redacted)
}

func (h *CommandHandler) handleConfigSet(ctx context.Context, cmd Command) Response {
	var args ConfigSetArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	if err := h.store.WriteConfig(ctx, args.Key, args.Value, args.Actor); err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (h *CommandHandler) handleConfigReset(ctx context.Context, cmd Command) Response {
	var args ConfigResetArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	// Reset clears the value by writing the empty string, as the HTTP
	// ConfigAPI.Reset does; no default is substituted on read.
	if err := h.store.WriteConfig(ctx, args.Key, "", args.Actor); err != nil {
		return fail(err)
	}
	return ok(nil)
}

func (h *CommandHandler) handleConfigList(ctx context.Context) Response {
	entries, err := h.store.ListConfig(ctx)
	if err != nil {
		return fail(err)
	}
	redacted := make([]models.ConfigEntry, len(entries))
	for i, e := range entries {
		redacted[i] = redactConfigEntry(e)
	}
	return ok(redacted)
}

// redactConfigEntry replaces a sensitive config entry's value before it
// crosses the IPC boundary.
func redactConfigEntry(entry models.ConfigEntry) models.ConfigEntry {
	if entry.Sensitive {
		entry.Value = "***"
	}
	return entry
}

func (h *CommandHandler) handleLinkGet(ctx context.Context, cmd Command) Response {
	var args LinkGetArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	link, err := h.store.Get(ctx, args.Code)
	if err != nil {
		return fail(err)
	}
	return ok(link)
}

func (h *CommandHandler) handleLinkSet(ctx context.Context, cmd Command) Response {
	var args LinkSetArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	if args.Code == "" || args.Target == "" {
		return fail(errs.ErrValidation)
	}

	existing, _ := h.store.Get(ctx, args.Code)
	var storedPassword string
	if existing != nil {
		storedPassword = existing.Password
	}
	newPassword, err := password.ProcessUpdate(args.Password, storedPassword)
	if err != nil {
		return fail(err)
	}

	link := &models.ShortLink{
		Code:      args.Code,
		Target:    args.Target,
		ExpiresAt: args.ExpiresAt,
		Password:  newPassword,
	}
	if existing != nil {
		link.CreatedAt = existing.CreatedAt
		link.ClickCount = existing.ClickCount
	}
	if err := h.store.Upsert(ctx, link); err != nil {
		return fail(err)
	}
	h.cache.OnCreate(link)
	return ok(link)
}

func (h *CommandHandler) handleLinkRemove(ctx context.Context, cmd Command) Response {
	var args LinkRemoveArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	if err := h.store.Remove(ctx, args.Code); err != nil {
		return fail(err)
	}
	h.cache.OnDelete(args.Code)
	return ok(nil)
}

func (h *CommandHandler) handleLinkList(ctx context.Context, cmd Command) Response {
	var args LinkListArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	links, _, err := h.store.List(ctx, models.ListFilter{
		Query:       args.Query,
		OnlyActive:  args.OnlyActive,
		OnlyExpired: args.OnlyExpired,
		Page:        args.Page,
		PageSize:    args.PageSize,
	})
	if err != nil {
		return fail(err)
	}
	return ok(links)
}

func (h *CommandHandler) handleBatchDelete(ctx context.Context, cmd Command) Response {
	var args BatchDeleteArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	removed := 0
	for _, code := range args.Codes {
		if err := h.store.Remove(ctx, code); err == nil {
			h.cache.OnDelete(code)
			removed++
		}
	}
	return ok(removed)
}

func (h *CommandHandler) handleExport(ctx context.Context) Response {
	links, _, err := h.store.List(ctx, models.ListFilter{PageSize: 1 << 30})
	if err != nil {
		return fail(err)
	}
	return ok(links)
}

func (h *CommandHandler) handleImport(ctx context.Context, cmd Command) Response {
	var args LinkImportArgs
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		return fail(errs.ErrProtocol)
	}
	mode := models.SkipExisting
	if args.Mode == "overwrite" {
		mode = models.Overwrite
	}
	for i := range args.Links {
		l := args.Links[i]
		hashed, err := password.ProcessImported(l.Password)
		if err != nil {
			return fail(err)
		}
		args.Links[i].Password = hashed
	}
	count, err := h.store.BulkUpsert(ctx, args.Links, mode)
	if err != nil {
		return fail(err)
	}
	for _, l := range args.Links {
		h.cache.OnCreate(&l)
	}
	return ok(count)
}

func (h *CommandHandler) handleShutdown() Response {
	close(h.shutdown)
	return ok(nil)
}
