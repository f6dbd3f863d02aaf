package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
	"github.com/jop2000ksa-sketch/jop2000/internal/linkcode"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

// Publisher drives a bound publisher through compose → reaction choice →
// preview → commit/cancel.
type Publisher struct {
	msgr     ports.Messenger
	dir      ports.Directory
	bindings *store.Bindings
	sessions *store.PublishSessions
	log      *slog.Logger
}

func NewPublisher(msgr ports.Messenger, dir ports.Directory, bindings *store.Bindings, sessions *store.PublishSessions, log *slog.Logger) *Publisher {
	return &Publisher{msgr: msgr, dir: dir, bindings: bindings, sessions: sessions, log: log}
}

const composeControlsData = CBDoneInput

func composeKeyboard() domain.Keyboard {
	return domain.Keyboard{{{Label: "✅ Done", Data: composeControlsData}}}
}

// BindForward binds the actor to a destination they forwarded a sample post
// from. The forwarded origin must be a channel or group, the bot must be able
// to see it, and the actor must hold a privileged role there right now.
func (p *Publisher) BindForward(ctx context.Context, actor domain.Actor, originID int64, originKind string) error {
	switch originKind {
	case "channel", "supergroup", "group":
	default:
		p.reply(ctx, actor.ID, "⚠️ Forward a post from a *channel* or *group* only.")
		return domain.ErrInvalidReference
	}
	if _, err := p.dir.Lookup(ctx, originID); err != nil {
		p.reply(ctx, actor.ID, "⚠️ I can't reach that destination.\nAdd the bot as an admin there first, then forward again.")
		return fmt.Errorf("destination unreachable: %w", domain.ErrUnavailable)
	}
	ok, err := p.dir.IsPrivileged(ctx, originID, actor.ID)
	if err != nil || !ok {
		p.reply(ctx, actor.ID, "⚠️ You must be an *admin* of the forwarded destination.")
		return domain.ErrNotPrivileged
	}
	p.bindings.Bind(actor.ID, originID)
	p.keepBindingInSession(actor.ID, originID)
	p.reply(ctx, actor.ID, fmt.Sprintf("✅ Publishing destination bound.\nID: %d", originID))
	return nil
}

// BindHandle binds via a public @handle instead of a forwarded sample.
func (p *Publisher) BindHandle(ctx context.Context, actor domain.Actor, handle string) error {
	dest, err := p.dir.Resolve(ctx, handle)
	if err != nil {
		p.reply(ctx, actor.ID, "⚠️ I couldn't reach that channel. Check the name and make sure the bot was added there.")
		return fmt.Errorf("resolve %q: %w", handle, domain.ErrUnavailable)
	}
	ok, err := p.dir.IsPrivileged(ctx, dest.ID, actor.ID)
	if err != nil {
		p.reply(ctx, actor.ID, "⚠️ Couldn't verify your role there. Is the bot an admin of the channel?")
		return domain.ErrNotPrivileged
	}
	if !ok {
		p.reply(ctx, actor.ID, "⚠️ You must be an *admin* of that channel.")
		return domain.ErrNotPrivileged
	}
	p.bindings.Bind(actor.ID, dest.ID)
	p.keepBindingInSession(actor.ID, dest.ID)
	p.reply(ctx, actor.ID, fmt.Sprintf("✅ Publishing destination bound.\nID: %d", dest.ID))
	return nil
}

// keepBindingInSession refreshes the destination snapshot on an existing
// session so a rebind takes effect without losing an open draft.
func (p *Publisher) keepBindingInSession(actorID, destID int64) {
	if sess := p.sessions.Get(actorID); sess != nil {
		sess.DestinationID = destID
	} else {
		p.sessions.Put(actorID, &domain.PublishSession{DestinationID: destID})
	}
}

// Open starts a compose session. Reopening while one is in flight re-notifies
// instead of resetting: an open draft is never silently discarded.
func (p *Publisher) Open(ctx context.Context, actor domain.Actor) error {
	// A drafted session past the compose stage (reaction choice, preview) is
	// still in flight even though AwaitingInput is off.
	if sess := p.sessions.Get(actor.ID); sess != nil && (sess.AwaitingInput || sess.Draft()) {
		p.reply(ctx, actor.ID, "ℹ️ You already have an open publish session. Send the content now or press ✅ Done.")
		return nil
	}
	dest := p.bindings.Get(actor.ID)
	if dest == 0 {
		p.reply(ctx, actor.ID, "⚠️ Before publishing: forward any post from the target channel to this private chat to bind it (one time only).")
		return domain.ErrNoBinding
	}
	p.sessions.Put(actor.ID, &domain.PublishSession{
		DestinationID: dest,
		AwaitingInput: true,
	})
	p.reply(ctx, actor.ID, fmt.Sprintf(
		"🧑‍💼 Publisher: %s\n\n"+
			"📝 Welcome to the publishing system.\n"+
			"✏️ Send the post text, or media:\n"+
			"- photo\n- video\n- file\n- audio\n\n"+
			"✅ When finished, press (Done) to send the post.", actor.Name))
	return nil
}

// SetText stores the draft text (last write wins) and refreshes the controls
// message in place.
func (p *Publisher) SetText(ctx context.Context, actor domain.Actor, text string) bool {
	sess := p.sessions.Get(actor.ID)
	if sess == nil || !sess.AwaitingInput {
		return false
	}
	sess.Text = autoHideLinks(text)
	p.upsertControls(ctx, actor.ID, sess, "✍️ Text saved. Add media or press ✅ Done.", "✍️ Text updated. Add media or press ✅ Done.")
	return true
}

// SetMedia stores the single media slot (last write wins).
func (p *Publisher) SetMedia(ctx context.Context, actor domain.Actor, item domain.MediaItem) bool {
	sess := p.sessions.Get(actor.ID)
	if sess == nil || !sess.AwaitingInput {
		return false
	}
	sess.Media = &item
	label := map[domain.MediaKind]string{
		domain.MediaPhoto:    "🖼️ Photo saved. Add text or press ✅ Done.",
		domain.MediaVideo:    "🎬 Video saved. Add text or press ✅ Done.",
		domain.MediaDocument: "📎 File saved. Add text or press ✅ Done.",
		domain.MediaAudio:    "🎵 Audio saved. Add text or press ✅ Done.",
		domain.MediaVoice:    "🎙️ Voice message saved. Add text or press ✅ Done.",
	}[item.Kind]
	if label == "" {
		return false
	}
	p.upsertControls(ctx, actor.ID, sess, label, label)
	return true
}

// upsertControls edits the single controls message when it exists; a failed
// edit (stale ref) falls back to sending a fresh one and re-recording it.
func (p *Publisher) upsertControls(ctx context.Context, actorID int64, sess *domain.PublishSession, freshText, editText string) {
	kb := composeKeyboard()
	if !sess.Controls.Zero() {
		if err := p.msgr.EditText(ctx, sess.Controls, editText, kb); err == nil {
			return
		}
	}
	ref, err := p.msgr.SendText(ctx, actorID, freshText, kb)
	if err != nil {
		p.log.Error("publish controls send failed", "actor", actorID, "err", err)
		return
	}
	sess.Controls = ref
}

// authorize is the dynamic gate in front of every publish button: the actor
// must be privileged in their bound destination right now.
func (p *Publisher) authorize(ctx context.Context, actorID int64) (*domain.PublishSession, bool) {
	sess := p.sessions.Get(actorID)
	if sess == nil || sess.DestinationID == 0 {
		return nil, false
	}
	ok, err := p.dir.IsPrivileged(ctx, sess.DestinationID, actorID)
	if err != nil || !ok {
		return nil, false
	}
	return sess, true
}

const bindFirstAlert = "❌ Bind your channel/group first by forwarding a post from it here."

// FinishInput transitions Composing → ReactionChoice.
func (p *Publisher) FinishInput(ctx context.Context, actor domain.Actor) Ack {
	sess, ok := p.authorize(ctx, actor.ID)
	if !ok {
		return Ack{Text: bindFirstAlert, Alert: true}
	}
	sess.AwaitingInput = false
	sess.ShowReactions = nil
	kb := domain.Keyboard{{
		{Label: "✅ Yes", Data: CBReactionsYes},
		{Label: "❌ No", Data: CBReactionsNo},
	}}
	p.send(ctx, actor.ID, "❓ Add reaction buttons (like / dislike)?", kb)
	return Ack{}
}

// ChooseReactions records whether vote buttons render on the eventual post.
func (p *Publisher) ChooseReactions(ctx context.Context, actor domain.Actor, show bool) Ack {
	sess, ok := p.authorize(ctx, actor.ID)
	if !ok {
		return Ack{Text: bindFirstAlert, Alert: true}
	}
	sess.ShowReactions = &show
	msg := "✅ Reaction buttons will not be shown."
	if show {
		msg = "😍 Reaction buttons will be shown with the post."
	}
	kb := domain.Keyboard{{{Label: "✅ Preview", Data: CBPreview}}}
	p.send(ctx, actor.ID, msg+"\nPress Preview to continue:", kb)
	return Ack{}
}

// Preview renders the would-be post to the actor only.
func (p *Publisher) Preview(ctx context.Context, actor domain.Actor) Ack {
	sess, ok := p.authorize(ctx, actor.ID)
	if !ok {
		return Ack{Text: bindFirstAlert, Alert: true}
	}
	if !sess.Draft() {
		p.reply(ctx, actor.ID, "⚠️ No content entered yet.")
		return Ack{}
	}
	rows := domain.Keyboard{}
	if sess.ShowReactions != nil && *sess.ShowReactions {
		rows = append(rows, []domain.Button{
			{Label: "😍 Like", Data: "none"},
			{Label: "😐 Dislike", Data: "none"},
		})
	}
	rows = append(rows, []domain.Button{
		{Label: "✅ Publish", Data: CBConfirmPublish},
		{Label: "❌ Cancel", Data: CBCancelPublish},
	})
	if sess.Media != nil {
		item := *sess.Media
		if item.Caption == "" {
			item.Caption = sess.Text
		}
		if _, err := p.msgr.SendMedia(ctx, actor.ID, item, rows); err != nil {
			p.log.Error("preview send failed", "actor", actor.ID, "err", err)
		}
	} else {
		p.send(ctx, actor.ID, sess.Text, rows)
	}
	return Ack{}
}

// Commit publishes the draft to the bound destination, appends the note link
// built from the actually delivered message, then resets the session while
// keeping the binding.
func (p *Publisher) Commit(ctx context.Context, actor domain.Actor) Ack {
	sess, ok := p.authorize(ctx, actor.ID)
	if !ok {
		return Ack{Text: bindFirstAlert, Alert: true}
	}
	if p.bindings.Get(actor.ID) == 0 {
		return Ack{Text: "⚠️ The destination is no longer bound. Forward a post from it again.", Alert: true}
	}
	if !sess.Draft() {
		return Ack{Text: "⚠️ The draft is empty. Send text or media first.", Alert: true}
	}

	useReactions := sess.ShowReactions != nil && *sess.ShowReactions
	var baseRows domain.Keyboard
	if useReactions {
		baseRows = append(baseRows, voteRow(0, 0))
	}

	var delivered domain.MessageRef
	var err error
	if sess.Media != nil {
		item := *sess.Media
		if item.Caption == "" {
			item.Caption = sess.Text
		}
		delivered, err = p.msgr.SendMedia(ctx, sess.DestinationID, item, baseRows)
	} else {
		delivered, err = p.msgr.SendText(ctx, sess.DestinationID, sess.Text, baseRows)
	}
	if err != nil {
		p.log.Error("publish failed", "actor", actor.ID, "destination", sess.DestinationID, "err", err)
		p.reply(ctx, actor.ID, "❌ Publishing failed. Try again.")
		return Ack{Text: "❌ Publishing failed.", Alert: true}
	}

	// The note link is built from the delivered message's real chat id, not
	// the session's, to tolerate destination resolution differences.
	if username, uerr := p.msgr.Username(ctx); uerr == nil {
		token := linkcode.Encode(delivered.ChatID, delivered.MessageID)
		rows := append(domain.Keyboard{}, baseRows...)
		rows = append(rows, noteLinkRow(username, token))
		if eerr := p.msgr.EditKeyboard(ctx, delivered, rows); eerr != nil {
			p.log.Warn("note link attach failed", "destination", delivered.ChatID, "message", delivered.MessageID, "err", eerr)
		}
	} else {
		p.log.Warn("bot username lookup failed", "err", uerr)
	}

	p.sessions.Reset(actor.ID)
	p.reply(ctx, actor.ID, "✅ Post published successfully.")
	return Ack{}
}

// Cancel resets the session, keeping the binding.
func (p *Publisher) Cancel(ctx context.Context, actor domain.Actor) Ack {
	if _, ok := p.authorize(ctx, actor.ID); !ok {
		return Ack{Text: bindFirstAlert, Alert: true}
	}
	p.sessions.Reset(actor.ID)
	p.reply(ctx, actor.ID, "❌ Publishing cancelled.")
	return Ack{}
}

// Status summarizes the actor's session for the /status diagnostic.
func (p *Publisher) Status(ctx context.Context, actor domain.Actor) {
	sess := p.sessions.Get(actor.ID)
	open := sess != nil && sess.AwaitingInput
	dest := int64(0)
	if sess != nil {
		dest = sess.DestinationID
	}
	p.reply(ctx, actor.ID, fmt.Sprintf("session_open: %t\ntarget_channel_id: %d", open, dest))
}

// Reset force-ends a session from the /reset diagnostic.
func (p *Publisher) Reset(ctx context.Context, actor domain.Actor) {
	if p.sessions.Get(actor.ID) == nil {
		p.reply(ctx, actor.ID, "No publish session is open.")
		return
	}
	p.sessions.Reset(actor.ID)
	p.reply(ctx, actor.ID, "✅ Publish session ended. Type jop to start a new one.")
}

func (p *Publisher) reply(ctx context.Context, chatID int64, text string) {
	p.send(ctx, chatID, text, nil)
}

func (p *Publisher) send(ctx context.Context, chatID int64, text string, kb domain.Keyboard) {
	if _, err := p.msgr.SendText(ctx, chatID, text, kb); err != nil {
		p.log.Error("send failed", "chat", chatID, "err", err)
	}
}
