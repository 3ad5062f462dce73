package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	"github.com/m3rciful/playlistbot/core/telegram/commands"
	"github.com/m3rciful/playlistbot/core/telegram/helpers"
	"github.com/m3rciful/playlistbot/core/telegram/ui"
	"github.com/m3rciful/playlistbot/internal/domain"
	"github.com/m3rciful/playlistbot/internal/playlist"
)

// inlineLimit caps inline query answers.
const inlineLimit = 20

// Handlers adapts Flows to telebot.
type Handlers struct {
	flows *Flows
}

var _ ui.FallbackProvider = (*Handlers)(nil)

// NewHandlers wraps flows.
func NewHandlers(flows *Flows) *Handlers {
	return &Handlers{flows: flows}
}

// Flows exposes the transport-free layer.
func (h *Handlers) Flows() *Flows { return h.flows }

type userFlow func(ctx context.Context, userID int64, arg string) []Reply

// run resolves the sender, runs fn and delivers its replies.
func (h *Handlers) run(c tele.Context, action, arg string, edit bool, fn userFlow) error {
	userID, err := helpers.SenderID(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	return deliver(c, action, fn(ctx, userID, arg), edit)
}

func payload(c tele.Context) string {
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

func (h *Handlers) command(action string, fn userFlow) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.run(c, action, payload(c), false, fn)
	}
}

func (h *Handlers) callback(action string, fn userFlow) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.run(c, action, callbacks.CallbackPayload(c), true, fn)
	}
}

func noArg(fn func(ctx context.Context, userID int64) []Reply) userFlow {
	return func(ctx context.Context, userID int64, _ string) []Reply { return fn(ctx, userID) }
}

// Register adds the bot's commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	f := h.flows
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: h.command("cmd.start", f.Start), Description: "Start the bot", Hidden: true}},
		{"/help", commands.Command{Handler: h.help, Description: "Show available commands"}},
		{"/newplaylist", commands.Command{Handler: h.command("cmd.newplaylist", f.NewPlaylist), Description: "Create a playlist", Aliases: []string{"new"}}},
		{"/playlists", commands.Command{Handler: h.command("cmd.playlists", noArg(f.Playlists)), Description: "List your playlists"}},
		{"/add", commands.Command{Handler: h.command("cmd.add", f.Add), Description: "Add forwarded tracks to a playlist"}},
		{"/finish", commands.Command{Handler: h.command("cmd.finish", noArg(f.Finish)), Description: "Stop adding tracks"}},
		{"/show", commands.Command{Handler: h.command("cmd.show", f.Show), Description: "Send a playlist"}},
		{"/remove", commands.Command{Handler: h.command("cmd.remove", f.Remove), Description: "Remove a track by index"}},
		{"/rename", commands.Command{Handler: h.command("cmd.rename", f.Rename), Description: "Rename a playlist"}},
		{"/cover", commands.Command{Handler: h.command("cmd.cover", f.Cover), Description: "Set a playlist cover"}},
		{"/share", commands.Command{Handler: h.command("cmd.share", f.Share), Description: "Get a share link"}},
		{"/delete", commands.Command{Handler: h.command("cmd.delete", f.Delete), Description: "Delete a playlist"}},
		{"/cancel", commands.Command{Handler: h.command("cmd.cancel", noArg(f.Cancel)), Description: "Abort the current step"}},
		{"/stats", commands.Command{Handler: h.stats, Description: "Bot statistics", AdminOnly: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		cbUsePlaylist:    h.callback("cb.use_playlist", f.UsePlaylist),
		cbAddMusic:       h.callback("cb.add_music", f.Add),
		cbShow:           h.callback("cb.show", f.Show),
		cbDeleteTrack:    h.callback("cb.delete_track", f.ChooseTrack),
		cbDeletePlaylist: h.callback("cb.delete_playlist", f.Delete),
		cbRename:         h.callback("cb.rename", f.AskRename),
		cbSetCover:       h.callback("cb.set_cover", f.Cover),
		cbShare:          h.callback("cb.share", f.Share),
		cbTrackToRemove:  h.callback("cb.track_to_remove", f.PickTrack),
		cbConfirmDelete:  h.callback("cb.confirm_delete", f.ConfirmDelete),
		cbCancelDelete:   h.callback("cb.cancel_delete", noArg(f.CancelDelete)),
		cbFinishAdd:      h.callback("cb.finish_add", noArg(f.Finish)),
		cbCancelFlow:     h.callback("cb.cancel_flow", noArg(f.Cancel)),
	}
	longest := strings.Repeat("n", domain.MaxNameLen)
	for key, handler := range cbs {
		if !callbacks.Fits(key, longest) {
			return fmt.Errorf("callback %q cannot carry a %d byte playlist name", key, domain.MaxNameLen)
		}
		if err := reg.RegisterCallback(key, handler); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	return nil
}

// Buttons maps main menu labels to their handlers.
func (h *Handlers) Buttons() map[string]tele.HandlerFunc {
	return map[string]tele.HandlerFunc{
		BtnMyPlaylists: h.command("btn.playlists", noArg(h.flows.Playlists)),
		BtnNewPlaylist: h.command("btn.newplaylist", h.flows.NewPlaylist),
	}
}

// InProgress reports whether the sender owes the bot a reply.
func (h *Handlers) InProgress(userID int64) bool {
	return h.flows.InProgress(userID)
}

// ManagerHandler feeds a text or media message to the pending step.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	in := Input{Text: c.Text()}
	if m := c.Message(); m != nil && m.Photo != nil {
		// telebot keeps the largest size
		in.PhotoID = m.Photo.FileID
	}
	return h.run(c, "fsm.reply", "", false, func(ctx context.Context, userID int64, _ string) []Reply {
		return h.flows.Reply(ctx, userID, in)
	})
}

// Audio stores forwarded audio into the open add session.
func (h *Handlers) Audio(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Audio == nil {
		return nil
	}
	title := m.Audio.Title
	if title == "" {
		title = m.Audio.FileName
	}
	return h.run(c, "audio.add", "", false, func(ctx context.Context, userID int64, _ string) []Reply {
		return h.flows.Audio(ctx, userID, m.Audio.FileID, title)
	})
}

func (h *Handlers) help(c tele.Context) error {
	return deliver(c, "cmd.help", h.flows.Help(), false)
}

func (h *Handlers) stats(c tele.Context) error {
	return deliver(c, "cmd.stats", h.flows.Stats(helpers.BuildContext(c)), false)
}

// AdminReject answers non-admins calling admin commands.
func (h *Handlers) AdminReject(c tele.Context) error {
	return helpers.SendText(c, msgAdminOnly)
}

// Throttled tells a rate limited user to slow down. Button presses get a
// toast instead of a chat message.
func (h *Handlers) Throttled(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return helpers.SendText(c, msgSlowDown)
}

// Inline answers "@bot <prefix>" with share links to the sender's playlists.
func (h *Handlers) Inline(c tele.Context) error {
	q := c.Query()
	if q == nil {
		return nil
	}
	userID, err := helpers.SenderID(c)
	if err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	found, err := h.flows.svc.Search(ctx, userID, q.Text, inlineLimit)
	if err != nil {
		return err
	}
	results := make(tele.Results, 0, len(found))
	for _, p := range found {
		link := playlist.ShareLink(h.flows.botUsername(), p.ID)
		results = append(results, ui.LinkArticle{
			ID:          strconv.FormatInt(p.ID, 10),
			Title:       p.Name,
			Description: "Share this playlist",
			Text:        "🎧 Playlist '" + p.Name + "'\n" + link,
			ButtonText:  "🎧 Open playlist",
			URL:         link,
		}.Result())
	}
	return c.Answer(&tele.QueryResponse{Results: results, IsPersonal: true})
}

// UnknownText answers free text when no step is pending.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return deliver(c, "unknown.text", h.flows.Idle(), false)
	}
}

// UnknownDocument answers files sent outside a step.
func (h *Handlers) UnknownDocument() tele.HandlerFunc { return h.UnknownText() }

// UnknownPhoto answers photos sent outside a step.
func (h *Handlers) UnknownPhoto() tele.HandlerFunc { return h.UnknownText() }

// UnknownCallback answers presses of buttons the bot no longer knows. The
// callback itself is already acknowledged by the router.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, msgStaleButton)
	}
}
