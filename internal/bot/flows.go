package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/format"
	"github.com/m3rciful/playlistbot/core/telegram/state"
	"github.com/m3rciful/playlistbot/internal/convo"
	"github.com/m3rciful/playlistbot/internal/domain"
	"github.com/m3rciful/playlistbot/internal/playlist"
)

// PlaylistService is the domain surface the bot drives.
type PlaylistService interface {
	EnsureUser(ctx context.Context, telegramID int64) (int64, error)
	CreatePlaylist(ctx context.Context, telegramID int64, name string) (domain.Playlist, error)
	RenamePlaylist(ctx context.Context, telegramID int64, oldName, newName string) error
	DeletePlaylist(ctx context.Context, telegramID int64, name string) error
	Resolve(ctx context.Context, telegramID int64, name string) (domain.Playlist, error)
	PlaylistNames(ctx context.Context, telegramID int64) ([]string, error)
	Search(ctx context.Context, telegramID int64, prefix string, limit int) ([]domain.Playlist, error)
	Tracks(ctx context.Context, telegramID int64, name string) (domain.Playlist, []domain.Track, error)
	AddTrack(ctx context.Context, playlistID int64, fileID string) (domain.Track, error)
	RemoveTrack(ctx context.Context, telegramID int64, name string, position int) (domain.Track, error)
	SetCover(ctx context.Context, telegramID int64, name, fileID string) error
	Shared(ctx context.Context, playlistID int64) (playlist.SharedPlaylist, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Input is a user message consumed by a pending step.
type Input struct {
	Text string
	// PhotoID is the largest size of an attached photo.
	PhotoID string
}

// Step consumes the reply expected in one conversation state.
type Step func(ctx context.Context, conv *convo.Conversation, userID int64, in Input) []Reply

// Flows implements every bot interaction without touching Telegram. Each
// method runs under the user's conversation lock and returns the replies to
// send, in order.
type Flows struct {
	svc      PlaylistService
	m        *convo.Machine
	steps    *state.Steps[Step]
	username atomic.Value
	failures atomic.Pointer[func() uint64]
}

// NewFlows wires flows over the playlist service and conversation machine.
func NewFlows(svc PlaylistService, m *convo.Machine) *Flows {
	f := &Flows{svc: svc, m: m}
	f.steps = f.buildSteps()
	return f
}

// SetBotUsername records the bot's handle for share links.
func (f *Flows) SetBotUsername(name string) {
	f.username.Store(strings.TrimPrefix(name, "@"))
}

// SetSendFailures reports failed deliveries in /stats through count.
func (f *Flows) SetSendFailures(count func() uint64) {
	f.failures.Store(&count)
}

func (f *Flows) botUsername() string {
	name, _ := f.username.Load().(string)
	return name
}

// InProgress reports whether userID owes the bot a reply.
func (f *Flows) InProgress(userID int64) bool {
	return f.m.InProgress(userID)
}

func (f *Flows) do(ctx context.Context, userID int64, op string, fn func(c *convo.Conversation) []Reply) []Reply {
	var out []Reply
	err := f.m.Do(ctx, userID, func(c *convo.Conversation) error {
		out = fn(c)
		return nil
	})
	if err != nil {
		logger.LogEvent(ctx, logger.Convo, slog.LevelError, op,
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if len(out) == 0 {
			out = one(text(msgInternal))
		}
	}
	return out
}

// failure renders a domain error for the user. name is the playlist the
// operation addressed.
func failure(err error, name string) Reply {
	switch {
	case errors.Is(err, domain.ErrPlaylistNotFound):
		return text(textNotFound(name))
	case errors.Is(err, domain.ErrPlaylistExists):
		return text(textExists(name))
	case errors.Is(err, domain.ErrNameTaken):
		return text(textNameTaken(name))
	case errors.Is(err, domain.ErrEmptyName):
		return text(msgEmptyName)
	case errors.Is(err, domain.ErrBadName):
		return text(msgBadName)
	case errors.Is(err, domain.ErrNameTooLong):
		return text(textNameTooLong(domain.MaxNameLen))
	case errors.Is(err, domain.ErrInvalidPosition):
		return text(msgBadIndex)
	case errors.Is(err, domain.ErrBadShareLink):
		return text(msgBadShare)
	}
	return text(msgInternal)
}

// Start greets the user or, with a share payload, sends the shared playlist.
func (f *Flows) Start(ctx context.Context, userID int64, payload string) []Reply {
	// a failed registration is logged by the service; the greeting still goes out
	_, _ = f.svc.EnsureUser(ctx, userID)

	payload = strings.TrimSpace(payload)
	return f.do(ctx, userID, "start", func(c *convo.Conversation) []Reply {
		c.Reset()
		if payload == "" {
			return one(withMarkup(msgWelcome, MainMenu()))
		}
		if !playlist.IsSharePayload(payload) || strings.ContainsAny(payload, " \t\n") {
			return one(withMarkup(msgUnknownStartLink, MainMenu()))
		}
		id, err := playlist.ParseSharePayload(payload)
		if err != nil {
			return one(withMarkup(msgBadShareLink, MainMenu()))
		}
		return f.shared(ctx, id)
	})
}

func (f *Flows) shared(ctx context.Context, playlistID int64) []Reply {
	sp, err := f.svc.Shared(ctx, playlistID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return one(text(msgShareMissing))
	case err != nil:
		return one(text(msgInternal))
	case len(sp.Tracks) == 0:
		return one(text(msgShareEmpty))
	}
	out := []Reply{{Text: textShareHeader(format.MD(sp.Playlist.Name)), Markdown: true}}
	if sp.Cover != "" {
		out = append(out, Reply{Photo: sp.Cover, Text: msgCoverCaption})
	}
	return append(out, albums(sp.Tracks)...)
}

// NewPlaylist creates name, or asks for it when empty.
func (f *Flows) NewPlaylist(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "newplaylist", func(c *convo.Conversation) []Reply {
		c.Reset()
		if name == "" {
			c.Await(convo.AwaitingPlaylistName, "")
			return one(withMarkup(msgAskNewName, CancelKeyboard()))
		}
		return f.create(ctx, userID, name)
	})
}

func (f *Flows) create(ctx context.Context, userID int64, name string) []Reply {
	if _, err := f.svc.CreatePlaylist(ctx, userID, name); err != nil {
		return one(failure(err, name))
	}
	return one(withMarkup(textCreated(name), ActionsKeyboard(name)))
}

// Playlists lists the user's playlists as buttons.
func (f *Flows) Playlists(ctx context.Context, userID int64) []Reply {
	return f.do(ctx, userID, "playlists", func(c *convo.Conversation) []Reply {
		c.Reset()
		return f.pickPlaylist(ctx, userID, msgYourPlaylists, cbUsePlaylist)
	})
}

// pickPlaylist offers the user's playlists as buttons firing action.
func (f *Flows) pickPlaylist(ctx context.Context, userID int64, prompt, action string) []Reply {
	names, err := f.svc.PlaylistNames(ctx, userID)
	if err != nil {
		return one(failure(err, ""))
	}
	if len(names) == 0 {
		return one(text(msgNoPlaylists))
	}
	return one(withMarkup(prompt, ListKeyboard(names, action)))
}

// UsePlaylist shows the action keyboard for name.
func (f *Flows) UsePlaylist(ctx context.Context, userID int64, name string) []Reply {
	return f.do(ctx, userID, "use_playlist", func(c *convo.Conversation) []Reply {
		c.Reset()
		p, err := f.svc.Resolve(ctx, userID, name)
		if err != nil {
			return one(failure(err, name))
		}
		return one(withMarkup(textActions(p.Name), ActionsKeyboard(p.Name)))
	})
}

// Add opens an add session for name, or asks for the playlist when empty.
func (f *Flows) Add(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "add", func(c *convo.Conversation) []Reply {
		c.Reset()
		// a new /add supersedes the open session even when it fails
		_, _ = c.FinishAdd()
		if name == "" {
			c.Await(convo.AwaitingAddTarget, "")
			return one(withMarkup(msgAskAddTarget, CancelKeyboard()))
		}
		return f.startAdd(ctx, c, userID, name)
	})
}

func (f *Flows) startAdd(ctx context.Context, c *convo.Conversation, userID int64, name string) []Reply {
	p, err := f.svc.Resolve(ctx, userID, name)
	if err != nil {
		return one(failure(err, name))
	}
	a := c.StartAdd(p.ID, p.Name)
	logger.LogEvent(ctx, logger.Convo, slog.LevelDebug, "add.start",
		slog.Int64("user_id", userID),
		slog.String("playlist", p.Name),
		slog.String("session_id", a.ID),
	)
	return one(withMarkup(textAddReady(p.Name, f.m.Config().AddWindow), FinishAddKeyboard()))
}

// Audio appends a forwarded track to the playlist of the open add session.
func (f *Flows) Audio(ctx context.Context, userID int64, fileID, title string) []Reply {
	if strings.TrimSpace(title) == "" {
		title = "track"
	}
	return f.do(ctx, userID, "audio", func(c *convo.Conversation) []Reply {
		if !c.Idle() {
			c.Reset()
		}
		a, err := c.ActiveAdd()
		switch {
		case errors.Is(err, convo.ErrAddSessionExpired):
			return one(text(textAddExpired(f.m.Config().AddWindow)))
		case err != nil:
			return one(text(msgNoSession))
		}
		if _, err := f.svc.AddTrack(ctx, a.PlaylistID, fileID); err != nil {
			switch {
			case errors.Is(err, domain.ErrTrackExists):
				return one(text(textTrackExists(title, a.Playlist)))
			case errors.Is(err, domain.ErrPlaylistNotFound):
				// deleted while the window was open
				_, _ = c.FinishAdd()
				return one(text(textNotFound(a.Playlist)))
			}
			return one(text(textAddFailed(title, a.Playlist)))
		}
		a, err = c.RecordTrack()
		if err != nil {
			return one(text(msgInternal))
		}
		return one(text(textAdded(title, a.Playlist, a.TracksAdded)))
	})
}

// Finish closes the add session with a summary.
func (f *Flows) Finish(ctx context.Context, userID int64) []Reply {
	return f.do(ctx, userID, "finish", func(c *convo.Conversation) []Reply {
		c.Reset()
		a, err := c.FinishAdd()
		if err != nil {
			return one(text(msgNoAddToFinish))
		}
		return one(withMarkup(textFinished(a.Playlist, a.TracksAdded), MainMenu()))
	})
}

// Show sends name's cover, track count and tracks, or asks for the playlist.
func (f *Flows) Show(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "show", func(c *convo.Conversation) []Reply {
		c.Reset()
		if name == "" {
			c.Await(convo.AwaitingShowTarget, "")
			return one(withMarkup(msgAskShowTarget, CancelKeyboard()))
		}
		return f.show(ctx, userID, name)
	})
}

func (f *Flows) show(ctx context.Context, userID int64, name string) []Reply {
	p, tracks, err := f.svc.Tracks(ctx, userID, name)
	if err != nil {
		return one(failure(err, name))
	}
	if len(tracks) == 0 {
		return one(text(textEmpty(p.Name)))
	}
	header := Reply{Text: textShowHeader(p.Name, len(tracks))}
	if p.HasCover() {
		header.Photo = format.Deref(p.CoverFileID, "")
	}
	return append([]Reply{header}, albums(tracks)...)
}

// Share replies with the deep link for name, or asks for the playlist.
func (f *Flows) Share(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "share", func(c *convo.Conversation) []Reply {
		c.Reset()
		if name == "" {
			c.Await(convo.AwaitingShareTarget, "")
			return one(withMarkup(msgAskShareTarget, CancelKeyboard()))
		}
		return f.share(ctx, userID, name)
	})
}

func (f *Flows) share(ctx context.Context, userID int64, name string) []Reply {
	p, err := f.svc.Resolve(ctx, userID, name)
	if err != nil {
		return one(failure(err, name))
	}
	link := playlist.ShareLink(f.botUsername(), p.ID)
	return one(Reply{Text: textShareLink(link), Markdown: true})
}

// Remove handles "/remove <name> <index>"; without arguments it lets the
// user pick a playlist first.
func (f *Flows) Remove(ctx context.Context, userID int64, args string) []Reply {
	args = strings.TrimSpace(args)
	return f.do(ctx, userID, "remove", func(c *convo.Conversation) []Reply {
		c.Reset()
		if args == "" {
			return f.pickPlaylist(ctx, userID, msgChooseRemove, cbDeleteTrack)
		}
		name, rawPos, err := splitLast(args)
		if err != nil {
			return one(text(msgUsageRemove))
		}
		pos, err := playlist.ParsePosition(rawPos)
		if err != nil {
			return one(text(msgUsageRemove))
		}
		return f.remove(ctx, userID, name, pos)
	})
}

// ChooseTrack shows the index keyboard for name and waits for a position.
func (f *Flows) ChooseTrack(ctx context.Context, userID int64, name string) []Reply {
	return f.do(ctx, userID, "delete_track", func(c *convo.Conversation) []Reply {
		c.Reset()
		p, tracks, err := f.svc.Tracks(ctx, userID, name)
		if err != nil {
			return one(failure(err, name))
		}
		if len(tracks) == 0 {
			return one(text(textEmpty(p.Name)))
		}
		c.Await(convo.AwaitingRemoveTrack, p.Name)
		return one(withMarkup(textChooseIndex(p.Name), IndexKeyboard(len(tracks))))
	})
}

// PickTrack removes the position pressed on the index keyboard.
func (f *Flows) PickTrack(ctx context.Context, userID int64, rawPos string) []Reply {
	return f.do(ctx, userID, "track_to_remove", func(c *convo.Conversation) []Reply {
		if c.State() != convo.AwaitingRemoveTrack {
			return one(text(msgNoActive))
		}
		return f.stepRemoveTrack(ctx, c, userID, Input{Text: rawPos})
	})
}

func (f *Flows) remove(ctx context.Context, userID int64, name string, pos int) []Reply {
	_, err := f.svc.RemoveTrack(ctx, userID, name, pos)
	switch {
	case errors.Is(err, domain.ErrPositionOutOfRange):
		return one(text(textCantRemove(pos, name)))
	case err != nil:
		return one(failure(err, name))
	}
	return one(text(textRemoved(pos, name)))
}

// Delete asks to confirm deletion of name; without a name it lets the user
// pick one.
func (f *Flows) Delete(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "delete", func(c *convo.Conversation) []Reply {
		c.Reset()
		if name == "" {
			return f.pickPlaylist(ctx, userID, msgChooseDelete, cbDeletePlaylist)
		}
		p, err := f.svc.Resolve(ctx, userID, name)
		if err != nil {
			return one(failure(err, name))
		}
		c.RequestDelete(p.Name)
		return one(withMarkup(textConfirmDelete(p.Name), ConfirmKeyboard(p.Name)))
	})
}

// ConfirmDelete deletes name if its confirmation is still pending.
func (f *Flows) ConfirmDelete(ctx context.Context, userID int64, name string) []Reply {
	return f.do(ctx, userID, "confirm_delete", func(c *convo.Conversation) []Reply {
		err := c.ConfirmDelete(name)
		c.Reset()
		switch {
		case errors.Is(err, convo.ErrDeleteExpired):
			return one(text(msgDeleteExpired))
		case err != nil:
			return one(text(msgNoPending))
		}
		if err := f.svc.DeletePlaylist(ctx, userID, name); err != nil {
			return one(failure(err, name))
		}
		return one(text(textDeleted(name)))
	})
}

// CancelDelete drops a pending deletion.
func (f *Flows) CancelDelete(ctx context.Context, userID int64) []Reply {
	return f.do(ctx, userID, "cancel_delete", func(c *convo.Conversation) []Reply {
		_, err := c.CancelDelete()
		c.Reset()
		if err != nil {
			return one(text(msgNoPending))
		}
		return one(text(msgDeleteCancel))
	})
}

// Rename handles "/rename <old> <new>"; without arguments it asks for both
// names in turn.
func (f *Flows) Rename(ctx context.Context, userID int64, args string) []Reply {
	fields := strings.Fields(args)
	return f.do(ctx, userID, "rename", func(c *convo.Conversation) []Reply {
		c.Reset()
		switch len(fields) {
		case 0:
			c.Await(convo.AwaitingRenameTarget, "")
			return one(withMarkup(msgAskRenameTarget, CancelKeyboard()))
		case 2:
			return f.rename(ctx, userID, fields[0], fields[1])
		}
		return one(text(msgUsageRename))
	})
}

// AskRename waits for the new name of name.
func (f *Flows) AskRename(ctx context.Context, userID int64, name string) []Reply {
	return f.do(ctx, userID, "ask_rename", func(c *convo.Conversation) []Reply {
		c.Reset()
		return f.awaitNewName(ctx, c, userID, name)
	})
}

func (f *Flows) awaitNewName(ctx context.Context, c *convo.Conversation, userID int64, name string) []Reply {
	p, err := f.svc.Resolve(ctx, userID, name)
	if err != nil {
		return one(failure(err, name))
	}
	c.Await(convo.AwaitingRenameTarget, p.Name)
	return one(withMarkup(textAskRenameTo(p.Name), CancelKeyboard()))
}

func (f *Flows) rename(ctx context.Context, userID int64, oldName, newName string) []Reply {
	err := f.svc.RenamePlaylist(ctx, userID, oldName, newName)
	switch {
	case errors.Is(err, domain.ErrNameTaken):
		return one(text(textNameTaken(newName)))
	case err != nil:
		return one(failure(err, oldName))
	}
	return one(text(textRenamed(oldName, newName)))
}

// Cover waits for a photo for name, or asks for the playlist first.
func (f *Flows) Cover(ctx context.Context, userID int64, name string) []Reply {
	name = strings.TrimSpace(name)
	return f.do(ctx, userID, "cover", func(c *convo.Conversation) []Reply {
		c.Reset()
		if name == "" {
			c.Await(convo.AwaitingCoverTarget, "")
			return one(withMarkup(msgAskCoverTarget, CancelKeyboard()))
		}
		return f.awaitCover(ctx, c, userID, name)
	})
}

func (f *Flows) awaitCover(ctx context.Context, c *convo.Conversation, userID int64, name string) []Reply {
	p, err := f.svc.Resolve(ctx, userID, name)
	if err != nil {
		return one(failure(err, name))
	}
	c.Await(convo.AwaitingCoverImage, p.Name)
	return one(withMarkup(textAskCover(p.Name), CancelKeyboard()))
}

// Cancel aborts the pending step, deletion and add session.
func (f *Flows) Cancel(ctx context.Context, userID int64) []Reply {
	return f.do(ctx, userID, "cancel", func(c *convo.Conversation) []Reply {
		_, pending := c.PendingDelete()
		busy := !c.Idle() || pending
		if _, err := c.FinishAdd(); err == nil {
			busy = true
		}
		c.Reset()
		if !busy {
			return one(withMarkup(msgNothingCancel, MainMenu()))
		}
		return one(withMarkup(msgCancelled, MainMenu()))
	})
}

// Help lists the commands.
func (f *Flows) Help() []Reply {
	name := f.botUsername()
	if name == "" {
		name = "bot"
	}
	return one(withMarkup(fmt.Sprintf(helpText, name), MainMenu()))
}

// Idle answers a message that arrived while nothing was pending.
func (f *Flows) Idle() []Reply {
	return one(withMarkup(msgNoActive, MainMenu()))
}

// Stats reports store-wide counters.
func (f *Flows) Stats(ctx context.Context) []Reply {
	st, err := f.svc.Stats(ctx)
	if err != nil {
		return one(text(msgInternal))
	}
	msg := textStats(st.Users, st.Playlists, st.Tracks)
	if count := f.failures.Load(); count != nil && *count != nil {
		msg += textSendFailures((*count)())
	}
	return one(text(msg))
}

// splitLast splits "name with spaces 3" into the name and its last word.
func splitLast(args string) (string, string, error) {
	i := strings.LastIndexAny(args, " \t")
	if i < 0 {
		return "", "", domain.ErrMalformedArgs
	}
	name := strings.TrimSpace(args[:i])
	if name == "" {
		return "", "", domain.ErrMalformedArgs
	}
	return name, args[i+1:], nil
}
