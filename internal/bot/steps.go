package bot

import (
	"context"
	"strings"

	"github.com/m3rciful/playlistbot/core/telegram/state"
	"github.com/m3rciful/playlistbot/internal/convo"
	"github.com/m3rciful/playlistbot/internal/playlist"
)

func (f *Flows) buildSteps() *state.Steps[Step] {
	steps := state.NewSteps[Step]()
	steps.Register(convo.AwaitingPlaylistName, textOnly(f.stepNewName))
	steps.Register(convo.AwaitingAddTarget, textOnly(f.stepAddTarget))
	steps.Register(convo.AwaitingShowTarget, textOnly(f.stepShowTarget))
	steps.Register(convo.AwaitingShareTarget, textOnly(f.stepShareTarget))
	steps.Register(convo.AwaitingCoverTarget, textOnly(f.stepCoverTarget))
	steps.Register(convo.AwaitingCoverImage, f.stepCoverImage)
	steps.Register(convo.AwaitingRemoveTrack, textOnly(f.stepRemoveTrack))
	steps.Register(convo.AwaitingRenameTarget, textOnly(f.stepRename))
	return steps
}

// textOnly fails the step when the reply carries no text.
func textOnly(step Step) Step {
	return func(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
		in.Text = strings.TrimSpace(in.Text)
		if in.Text == "" {
			c.Reset()
			return one(text(msgTextExpected))
		}
		return step(ctx, c, userID, in)
	}
}

// Reply feeds a message to the step the user is in. Whatever the outcome,
// a step ends in idle unless it asks a follow-up question.
func (f *Flows) Reply(ctx context.Context, userID int64, in Input) []Reply {
	return f.do(ctx, userID, "reply", func(c *convo.Conversation) []Reply {
		step, ok := f.steps.Lookup(c.State())
		if !ok {
			c.Reset()
			return f.Idle()
		}
		return step(ctx, c, userID, in)
	})
}

func (f *Flows) stepNewName(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	c.Reset()
	return f.create(ctx, userID, in.Text)
}

func (f *Flows) stepAddTarget(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	c.Reset()
	return f.startAdd(ctx, c, userID, in.Text)
}

func (f *Flows) stepShowTarget(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	c.Reset()
	return f.show(ctx, userID, in.Text)
}

func (f *Flows) stepShareTarget(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	c.Reset()
	return f.share(ctx, userID, in.Text)
}

func (f *Flows) stepCoverTarget(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	c.Reset()
	return f.awaitCover(ctx, c, userID, in.Text)
}

func (f *Flows) stepCoverImage(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	name := c.Target()
	c.Reset()
	if in.PhotoID == "" {
		return one(text(msgPhotoExpected))
	}
	if err := f.svc.SetCover(ctx, userID, name, in.PhotoID); err != nil {
		return one(failure(err, name))
	}
	return one(text(textCoverSet(name)))
}

func (f *Flows) stepRemoveTrack(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	name := c.Target()
	c.Reset()
	pos, err := playlist.ParsePosition(in.Text)
	if err != nil {
		return one(failure(err, name))
	}
	return f.remove(ctx, userID, name, pos)
}

// stepRename first takes the playlist to rename when it is not known yet,
// then the new name.
func (f *Flows) stepRename(ctx context.Context, c *convo.Conversation, userID int64, in Input) []Reply {
	oldName := c.Target()
	c.Reset()
	if oldName == "" {
		return f.awaitNewName(ctx, c, userID, in.Text)
	}
	return f.rename(ctx, userID, oldName, in.Text)
}
