package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

// DefaultCatalog is the canned-reply catalog presented on every quick-reply
// invocation. Deployments can override it from the config file.
var DefaultCatalog = []string{
	"📬 Thanks for your note, it was forwarded to the relevant team for review.",
	"📌 Your suggestion was received and will be considered carefully by the admins.",
	"🤝 We appreciate you reaching out; the note was raised to the responsible party.",
	"📝 The note came through clearly, thank you for your interest.",
	"🧾 Your inquiry was received and will be answered through the channel soon.",
	"✅ Thanks for your inquiry, it was handled according to our publishing policy.",
	"🗂️ Your inquiry matters, it was raised for follow-up with the responsible section.",
	"🌟 Thank you for your kind support, it motivates us to do better.",
	"💙 We value your trust and hope to always live up to it.",
	"📌 Job and course information is published periodically in the channel only.",
}

// Responder routes administrator replies back to the consumer who raised a
// note. Each administrator has their own slot; exactly-once delivery per
// record is enforced on the record itself.
type Responder struct {
	msgr    ports.Messenger
	dir     ports.Directory
	records *store.Records
	slots   *store.ReplySlots
	catalog []string
	log     *slog.Logger
	now     func() time.Time
}

func NewResponder(msgr ports.Messenger, dir ports.Directory, records *store.Records, slots *store.ReplySlots, catalog []string, log *slog.Logger) *Responder {
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	return &Responder{
		msgr:    msgr,
		dir:     dir,
		records: records,
		slots:   slots,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

const notAuthorizedAlert = "Not authorized for this inquiry."

// authorize re-resolves the admin's privilege against the record's source
// destination. Privilege can change mid-composition, so every step calls this
// again.
func (r *Responder) authorize(ctx context.Context, adminID, targetID int64) (*domain.InquiryRecord, bool) {
	rec := r.records.Get(targetID)
	if rec == nil {
		return nil, false
	}
	ok, err := r.dir.IsPrivileged(ctx, rec.DestinationID, adminID)
	if err != nil || !ok {
		return nil, false
	}
	return rec, true
}

// BeginQuick presents the canned-reply catalog, staged fresh per invocation.
func (r *Responder) BeginQuick(ctx context.Context, admin domain.Actor, targetID int64) Ack {
	if _, ok := r.authorize(ctx, admin.ID, targetID); !ok {
		return Ack{Text: notAuthorizedAlert, Alert: true}
	}
	var rows domain.Keyboard
	for i, text := range r.catalog {
		key := fmt.Sprintf("%d_%d", targetID, i)
		r.slots.Stage(key, targetID, text)
		rows = append(rows, []domain.Button{{Label: text, Data: fmt.Sprintf("%s|%s", CBSendQuickReply, key)}})
	}
	rows = append(rows, []domain.Button{{Label: "❌ Cancel", Data: CBCancelReply}})
	r.send(ctx, admin.ID, "🗂️ Pick the canned reply to send:", rows)
	return Ack{}
}

// PickQuick stages the chosen phrase as the admin's draft and opens their
// reply slot. The staged text can still be edited or have media attached.
func (r *Responder) PickQuick(ctx context.Context, admin domain.Actor, key string) Ack {
	targetID, text, ok := r.slots.Staged(key)
	if !ok {
		return Ack{Text: "⚠️ Reply not found!", Alert: true}
	}
	if _, ok := r.authorize(ctx, admin.ID, targetID); !ok {
		return Ack{Text: notAuthorizedAlert, Alert: true}
	}
	r.slots.Put(&domain.ReplyDraft{AdminID: admin.ID, TargetID: targetID, Text: text})
	r.send(ctx, admin.ID,
		fmt.Sprintf("📝 Chosen reply:\n\n%s\n\n✍️ You can edit it or send media now, then press 📤 to send.", text),
		replyKeyboard())
	return Ack{}
}

// BeginCustom opens the admin's reply slot with nothing staged.
func (r *Responder) BeginCustom(ctx context.Context, admin domain.Actor, targetID int64) Ack {
	if _, ok := r.authorize(ctx, admin.ID, targetID); !ok {
		return Ack{Text: notAuthorizedAlert, Alert: true}
	}
	r.slots.Put(&domain.ReplyDraft{AdminID: admin.ID, TargetID: targetID})
	r.send(ctx, admin.ID, "✍️ Write your custom reply now...", nil)
	return Ack{}
}

// Capture stores reply content while the slot is open: text overwrites staged
// text, a media item overwrites staged media, independently. Returns false
// when this admin has no reply in flight.
func (r *Responder) Capture(ctx context.Context, admin domain.Actor, text string, media *domain.MediaItem) bool {
	draft := r.slots.Get(admin.ID)
	if draft == nil {
		return false
	}
	if _, ok := r.authorize(ctx, admin.ID, draft.TargetID); !ok {
		return true // slot open but no longer privileged: swallow, never publish
	}
	if text != "" {
		draft.Text = autoHideLinks(text)
		r.send(ctx, admin.ID, "✍️ Text saved. Add media now or press 📤 to send.", replyKeyboard())
		return true
	}
	if media != nil {
		draft.Media = media
		if draft.Text == "" && media.Caption != "" {
			draft.Text = media.Caption
		}
		label := map[domain.MediaKind]string{
			domain.MediaPhoto:    "🖼️ Photo saved. Write text or press 📤 to send.",
			domain.MediaVideo:    "🎬 Video saved. Write text or press 📤 to send.",
			domain.MediaDocument: "📎 File saved. Write text or press 📤 to send.",
			domain.MediaAudio:    "🎵 Audio saved. Write text or press 📤 to send.",
			domain.MediaVoice:    "🎙️ Voice message saved. Write text or press 📤 to send.",
		}[media.Kind]
		if label == "" {
			return true
		}
		r.send(ctx, admin.ID, label, replyKeyboard())
	}
	return true
}

const (
	replyIntro = "📩 A reply to your note from the channel admins\n\n"
	replyOutro = "\n\n🤝 Thanks for reaching out."
)

// Send delivers the staged reply to the consumer. The slot is consumed
// unconditionally; exactly one administrator's reply is ever delivered per
// record, with same-admin re-sends allowed as overwrites.
func (r *Responder) Send(ctx context.Context, admin domain.Actor) Ack {
	draft := r.slots.Take(admin.ID)
	if draft == nil {
		return Ack{Text: "No reply in progress.", Alert: true}
	}
	rec, ok := r.authorize(ctx, admin.ID, draft.TargetID)
	if !ok {
		return Ack{Text: notAuthorizedAlert, Alert: true}
	}

	// The claim happens before delivery, so two admins inside the same send
	// window cannot both reach the consumer. A failed delivery releases the
	// claim again, unless this admin had already answered earlier.
	alreadyMine := rec.HandledByID == admin.ID
	if cerr := r.records.ClaimHandled(draft.TargetID, admin, r.now()); cerr != nil {
		var handled *domain.AlreadyHandledError
		if errors.As(cerr, &handled) {
			return Ack{Text: fmt.Sprintf("Already answered by %s.", handled.By), Alert: true, StripControls: true}
		}
		return Ack{Text: "No reply in progress.", Alert: true}
	}

	var err error
	if draft.Media != nil {
		item := *draft.Media
		body := item.Caption
		if body == "" {
			body = draft.Text
		}
		item.Caption = replyIntro + body + replyOutro
		_, err = r.msgr.SendMedia(ctx, draft.TargetID, item, nil)
	} else {
		_, err = r.msgr.SendText(ctx, draft.TargetID, replyIntro+draft.Text+replyOutro, nil)
	}
	if err != nil {
		r.log.Error("reply delivery failed", "admin", admin.ID, "target", draft.TargetID, "err", err)
		if !alreadyMine {
			r.records.ReleaseClaim(draft.TargetID, admin.ID)
		}
		return Ack{Text: "An error occurred while sending.", Alert: true}
	}

	r.broadcastHandled(ctx, rec, admin, draft.Text)
	return Ack{Text: "Reply sent.", StripControls: true}
}

// broadcastHandled tells the destination's current admins who answered what.
func (r *Responder) broadcastHandled(ctx context.Context, rec *domain.InquiryRecord, admin domain.Actor, replyText string) {
	userText := rec.Text
	if userText == "" {
		userText = "📎 media only"
	}
	notice := fmt.Sprintf(
		"📢 <b>A reply was sent for an inquiry:</b>\n"+
			"👤 <b>Name:</b> <code>%s</code>\n"+
			"🆔 <b>User:</b> <code>%d</code>\n"+
			"📝 <b>Inquiry:</b>\n<code>%s</code>\n\n"+
			"✍️ <b>Reply sent:</b>\n<code>%s</code>\n\n"+
			"👨‍💼 <b>Admin:</b> <code>%s</code>",
		rec.ConsumerName, rec.ConsumerID, truncate(userText, 100), truncate(replyText, 100), admin.Name)

	members, err := r.dir.PrivilegedMembers(ctx, rec.DestinationID)
	if err != nil {
		r.log.Error("handled broadcast: admin list failed", "destination", rec.DestinationID, "err", err)
		return
	}
	for _, m := range members {
		if m.IsBot {
			continue
		}
		if _, serr := r.msgr.SendText(ctx, m.ID, notice, nil); serr != nil {
			r.log.Error("handled broadcast failed", "admin", m.ID, "err", serr)
		}
	}
}

// Cancel clears the admin's slot and posts a notice naming them.
func (r *Responder) Cancel(ctx context.Context, admin domain.Actor) Ack {
	draft := r.slots.Take(admin.ID)
	target := "unknown user"
	if draft != nil {
		if rec := r.records.Get(draft.TargetID); rec != nil {
			target = rec.ConsumerName
		}
	}
	r.send(ctx, admin.ID, fmt.Sprintf(
		"🚫 <b>The reply for the following user was cancelled:</b>\n"+
			"🧑‍💼 <code>%s</code>\n\n"+
			"❎ <b>Cancelled by:</b>\n<code>%s</code>", target, admin.Name), nil)
	return Ack{}
}

// Open reports whether this admin currently has a reply in flight. The router
// uses it to route private messages to reply capture first.
func (r *Responder) Open(adminID int64) bool {
	return r.slots.Get(adminID) != nil
}

func replyKeyboard() domain.Keyboard {
	return domain.Keyboard{
		{{Label: "📤 Send reply", Data: CBSendCustomReply}},
		{{Label: "❌ Cancel", Data: CBCancelReply}},
	}
}

func (r *Responder) send(ctx context.Context, chatID int64, text string, kb domain.Keyboard) {
	if _, err := r.msgr.SendText(ctx, chatID, text, kb); err != nil {
		r.log.Error("send failed", "chat", chatID, "err", err)
	}
}
