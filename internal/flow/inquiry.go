package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
	"github.com/jop2000ksa-sketch/jop2000/internal/linkcode"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

// Inquirer drives a consumer through compose → preview → submit/cancel and
// fans the submitted note out to the destination's current administrators.
type Inquirer struct {
	msgr     ports.Messenger
	dir      ports.Directory
	sessions *store.InquirySessions
	records  *store.Records
	locks    *store.Keyed
	log      *slog.Logger
	now      func() time.Time
}

func NewInquirer(msgr ports.Messenger, dir ports.Directory, sessions *store.InquirySessions, records *store.Records, log *slog.Logger) *Inquirer {
	return &Inquirer{
		msgr:     msgr,
		dir:      dir,
		sessions: sessions,
		records:  records,
		locks:    store.NewKeyed(),
		log:      log,
		now:      time.Now,
	}
}

func inquiryKeyboard() domain.Keyboard {
	return domain.Keyboard{
		{{Label: "📤 Send", Data: CBSendInquiry}},
		{{Label: "❌ Cancel", Data: CBCancelInquiry}},
	}
}

// Welcome handles a bare /start with no entry token.
func (q *Inquirer) Welcome(ctx context.Context, consumer domain.Actor) {
	q.reply(ctx, consumer.ID, fmt.Sprintf(
		"🧑‍💼 %s\n\n"+
			"👋 Welcome to the support system.\n"+
			"To reach the admins, use the (💬 Raise a note) button under any post.", consumer.Name))
}

// Open decodes the entry token and starts a compose session, unless this
// consumer already submitted a note for that post.
func (q *Inquirer) Open(ctx context.Context, consumer domain.Actor, token string) error {
	destID, postID, err := linkcode.Decode(token)
	if err != nil {
		q.reply(ctx, consumer.ID, "⚠️ Invalid link. Try again from the post's button.")
		return err
	}
	if q.records.Submitted(consumer.ID, postID) {
		q.reply(ctx, consumer.ID, fmt.Sprintf(
			"🧑‍💼 %s\n\n"+
				"🚫 You already sent a note on this post.\n"+
				"You can't send another note for the same post.", consumer.Name))
		return domain.ErrAlreadySubmitted
	}
	q.sessions.Put(consumer.ID, &domain.InquirySession{
		Stage:         domain.StageComposing,
		PostID:        postID,
		DestinationID: destID,
	})
	q.reply(ctx, consumer.ID, fmt.Sprintf(
		"🧑‍💼 %s\n\n"+
			"🤝 Welcome to admin messaging.\n"+
			"✏️ Send your note now as text or media:\n"+
			"- photo\n- video\n- file\n- voice note\n\n"+
			"When done you'll see (📤 Send) and (❌ Cancel) buttons.", consumer.Name))
	return nil
}

// Capture takes one message worth of content: text overwrites the note, a
// media item appends to the ordered list. The first caption seeds the note
// text if it is still empty. Returns false when no session is open.
func (q *Inquirer) Capture(ctx context.Context, consumer domain.Actor, text string, media *domain.MediaItem) bool {
	sess := q.sessions.Get(consumer.ID)
	if sess == nil || sess.Stage != domain.StageComposing && sess.Stage != domain.StagePreview {
		return false
	}

	var label string
	if text != "" {
		sess.Text = autoHideLinks(text)
		label = "✍️ Text saved. You can add a photo / video / file, or press 📤 Send."
	}
	if media != nil {
		if media.Caption != "" && sess.Text == "" {
			sess.Text = autoHideLinks(media.Caption)
		}
		sess.Media = append(sess.Media, *media)
		label = map[domain.MediaKind]string{
			domain.MediaPhoto:    "🖼️ Photo saved. Add text or press 📤 Send.",
			domain.MediaVideo:    "🎬 Video saved. Add text or press 📤 Send.",
			domain.MediaDocument: "📎 File saved. Add text or press 📤 Send.",
			domain.MediaAudio:    "🎵 Audio saved. Add text or press 📤 Send.",
			domain.MediaVoice:    "🎙️ Voice message saved. Add text or press 📤 Send.",
		}[media.Kind]
	}
	if label == "" {
		return false
	}
	sess.Stage = domain.StagePreview
	q.upsertControls(ctx, consumer.ID, sess, label)
	return true
}

func (q *Inquirer) upsertControls(ctx context.Context, consumerID int64, sess *domain.InquirySession, label string) {
	kb := inquiryKeyboard()
	if !sess.Controls.Zero() {
		if err := q.msgr.EditText(ctx, sess.Controls, label, kb); err == nil {
			return
		}
	}
	ref, err := q.msgr.SendText(ctx, consumerID, label, kb)
	if err != nil {
		q.log.Error("inquiry controls send failed", "consumer", consumerID, "err", err)
		return
	}
	sess.Controls = ref
}

// Submit records the note and notifies the destination's administrators. The
// keyed try-lock serializes double presses; the ledger is re-checked inside
// it to close the open-to-submit race.
func (q *Inquirer) Submit(ctx context.Context, consumer domain.Actor) Ack {
	sess := q.sessions.Get(consumer.ID)
	if sess == nil {
		return Ack{Text: "No active operation.", Alert: true}
	}

	lockKey := fmt.Sprintf("inq_send_lock:%d:%d", consumer.ID, sess.PostID)
	if !q.locks.TryAcquire(lockKey) {
		return Ack{Text: "Processing…"}
	}
	defer q.locks.Release(lockKey)

	if sess.Text == "" && len(sess.Media) == 0 {
		return Ack{Text: "⚠️ You haven't entered a note yet.", Alert: true}
	}
	if q.records.Submitted(consumer.ID, sess.PostID) {
		return Ack{Text: "🚫 You already sent a note for this post.", Alert: true}
	}

	rec := &domain.InquiryRecord{
		ID:            uuid.NewString(),
		ConsumerID:    consumer.ID,
		ConsumerName:  consumer.Name,
		Text:          sess.Text,
		Media:         append([]domain.MediaItem(nil), sess.Media...),
		Status:        domain.StatusPendingSend,
		SubmittedAt:   q.now(),
		PostID:        sess.PostID,
		DestinationID: sess.DestinationID,
	}
	if displaced := q.records.Put(rec); displaced != nil {
		q.log.Warn("unhandled inquiry record displaced",
			"consumer", consumer.ID, "old_post", displaced.PostID, "new_post", rec.PostID)
	}

	q.notifyAdmins(ctx, rec)

	q.records.MarkSubmitted(consumer.ID, sess.PostID)
	q.records.SetStatus(consumer.ID, domain.StatusSent)

	q.cleanupUI(ctx, sess)
	q.sessions.Delete(consumer.ID)

	q.reply(ctx, consumer.ID, "✅ Your note was sent to the channel admins.\n📬 You'll get a reply soon.\n\n🤝 Thanks for reaching out.")
	return Ack{}
}

// notifyAdmins fans the note out to every current human administrator of the
// source destination. Fire and forget: one failed send never aborts the rest,
// and an empty admin list is logged as undeliverable rather than failing the
// consumer.
func (q *Inquirer) notifyAdmins(ctx context.Context, rec *domain.InquiryRecord) {
	members, err := q.dir.PrivilegedMembers(ctx, rec.DestinationID)
	if err != nil {
		q.log.Error("admin list lookup failed", "destination", rec.DestinationID, "err", err)
	}
	if len(members) == 0 {
		q.log.Error("inquiry undeliverable: no admins resolvable", "destination", rec.DestinationID, "consumer", rec.ConsumerID)
		return
	}

	kb := domain.Keyboard{
		{{Label: "💬 Quick reply", Data: fmt.Sprintf("%s|%d", CBQuickReply, rec.ConsumerID)}},
		{{Label: "✍️ Custom reply", Data: fmt.Sprintf("%s|%d", CBCustomReply, rec.ConsumerID)}},
	}

	body := q.renderNotice(rec)
	for _, m := range members {
		if m.IsBot {
			continue
		}
		var err error
		if len(rec.Media) > 0 {
			item := rec.Media[0] // one carrier so the buttons attach to a single message
			item.Caption = body
			_, err = q.msgr.SendMedia(ctx, m.ID, item, kb)
		} else {
			_, err = q.msgr.SendText(ctx, m.ID, body, kb)
		}
		if err != nil {
			q.log.Error("inquiry fan-out failed", "admin", m.ID, "err", err)
		}
	}
}

func (q *Inquirer) renderNotice(rec *domain.InquiryRecord) string {
	var b strings.Builder
	b.WriteString("<b>📥 New inquiry received</b>\n")
	fmt.Fprintf(&b, "👤 <b>User:</b> <code>%s</code>\n", rec.ConsumerName)
	fmt.Fprintf(&b, "🆔 <b>ID:</b> <code>%d</code>\n\n", rec.ConsumerID)
	if rec.Text != "" {
		fmt.Fprintf(&b, "📝 <b>Content:</b>\n%s", rec.Text)
	} else {
		b.WriteString("📝 <b>Content:</b> <i>no text</i>")
	}
	if extra := len(rec.Media) - 1; extra > 0 {
		fmt.Fprintf(&b, "\n\n(+%d more attachments)", extra)
	}
	return b.String()
}

// Cancel tears the session down without recording anything.
func (q *Inquirer) Cancel(ctx context.Context, consumer domain.Actor) Ack {
	sess := q.sessions.Get(consumer.ID)
	if sess == nil {
		return Ack{Text: "No active operation.", Alert: true}
	}
	q.cleanupUI(ctx, sess)
	q.sessions.Delete(consumer.ID)
	q.reply(ctx, consumer.ID, "❌ Inquiry cancelled.")
	return Ack{}
}

// cleanupUI strips controls off the compose message.
func (q *Inquirer) cleanupUI(ctx context.Context, sess *domain.InquirySession) {
	if !sess.Controls.Zero() {
		if err := q.msgr.EditKeyboard(ctx, sess.Controls, nil); err != nil {
			q.log.Warn("controls cleanup failed", "chat", sess.Controls.ChatID, "err", err)
		}
	}
}

func (q *Inquirer) reply(ctx context.Context, chatID int64, text string) {
	if _, err := q.msgr.SendText(ctx, chatID, text, nil); err != nil {
		q.log.Error("send failed", "chat", chatID, "err", err)
	}
}
