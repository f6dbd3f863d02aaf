package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/flow"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

// Router dispatches inbound updates to the flows. It owns the per-actor
// mutex domain: all events from one user serialize, different users run
// concurrently.
type Router struct {
	bot       *Bot
	publisher *flow.Publisher
	inquirer  *flow.Inquirer
	responder *flow.Responder
	tally     *flow.Tally
	sessions  *store.PublishSessions
	inqSess   *store.InquirySessions
	actors    *store.Actors
	log       *slog.Logger
}

func NewRouter(bot *Bot, publisher *flow.Publisher, inquirer *flow.Inquirer, responder *flow.Responder, tally *flow.Tally,
	sessions *store.PublishSessions, inqSess *store.InquirySessions, log *slog.Logger) *Router {
	return &Router{
		bot:       bot,
		publisher: publisher,
		inquirer:  inquirer,
		responder: responder,
		tally:     tally,
		sessions:  sessions,
		inqSess:   inqSess,
		actors:    store.NewActors(),
		log:       log,
	}
}

var jopTrigger = regexp.MustCompile(`(?i)^\s*jop\s*$`)

// Dispatch handles one update end to end.
func (r *Router) Dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		unlock := r.actors.Lock(q.From.ID)
		defer unlock()
		r.handleCallback(ctx, q)
	case update.Message != nil && update.Message.From != nil && update.Message.Chat.IsPrivate():
		m := update.Message
		unlock := r.actors.Lock(m.From.ID)
		defer unlock()
		r.handleMessage(ctx, m)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	actor := domain.Actor{ID: msg.From.ID, Name: fullName(msg.From)}

	if msg.IsCommand() {
		r.handleCommand(ctx, actor, msg)
		return
	}

	// Binding by forwarded sample takes priority over content capture.
	if msg.ForwardFromChat != nil {
		if err := r.publisher.BindForward(ctx, actor, msg.ForwardFromChat.ID, msg.ForwardFromChat.Type); err != nil {
			r.log.Info("bind by forward refused", "actor", actor.ID, "err", err)
		}
		return
	}

	if jopTrigger.MatchString(msg.Text) {
		if err := r.publisher.Open(ctx, actor); err != nil {
			r.log.Info("publish open refused", "actor", actor.ID, "err", err)
		}
		return
	}

	text, media := content(msg)
	if text == "" && media == nil {
		return
	}

	// Precedence mirrors the update groups of the original system: an open
	// inquiry session eats the content first, then an open reply slot, then
	// an open publish session.
	if sess := r.inqSess.Get(actor.ID); sess != nil {
		r.inquirer.Capture(ctx, actor, text, media)
		return
	}
	if r.responder.Open(actor.ID) {
		r.responder.Capture(ctx, actor, text, media)
		return
	}
	if sess := r.sessions.Get(actor.ID); sess != nil && sess.AwaitingInput {
		if media != nil {
			r.publisher.SetMedia(ctx, actor, *media)
		} else {
			r.publisher.SetText(ctx, actor, text)
		}
		return
	}

	// A stray "bind" mention gets usage help instead of silence.
	if strings.Contains(strings.ToLower(msg.Text), "bind") {
		r.send(ctx, actor.ID, "⚠️ That isn't a forward from a channel.\n"+
			"To bind by forwarding: open the channel → pick a message → Forward (without Hide sender) → send it here.\n"+
			"Or use: /bind @username")
	}
}

func (r *Router) handleCommand(ctx context.Context, actor domain.Actor, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			r.inquirer.Welcome(ctx, actor)
			return
		}
		if err := r.inquirer.Open(ctx, actor, arg); err != nil {
			r.log.Info("inquiry open refused", "consumer", actor.ID, "err", err)
		}
	case "jop":
		if err := r.publisher.Open(ctx, actor); err != nil {
			r.log.Info("publish open refused", "actor", actor.ID, "err", err)
		}
	case "bind":
		handle := strings.TrimSpace(msg.CommandArguments())
		if handle == "" {
			r.send(ctx, actor.ID, "Use it like this:\n/bind @channel_name")
			return
		}
		if !strings.HasPrefix(handle, "@") {
			r.send(ctx, actor.ID, "Write the channel name with @, like: /bind @mychannel")
			return
		}
		if err := r.publisher.BindHandle(ctx, actor, handle); err != nil {
			r.log.Info("bind by handle refused", "actor", actor.ID, "err", err)
		}
	case "status":
		r.publisher.Status(ctx, actor)
	case "reset":
		r.publisher.Reset(ctx, actor)
	case "webhookinfo":
		r.webhookInfo(ctx, actor)
	}
}

func (r *Router) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	actor := domain.Actor{ID: q.From.ID, Name: fullName(q.From)}
	data := q.Data

	var ack flow.Ack
	switch {
	case data == flow.CBDoneInput:
		ack = r.publisher.FinishInput(ctx, actor)
	case data == flow.CBReactionsYes || data == flow.CBReactionsNo:
		ack = r.publisher.ChooseReactions(ctx, actor, data == flow.CBReactionsYes)
	case data == flow.CBPreview:
		ack = r.publisher.Preview(ctx, actor)
	case data == flow.CBConfirmPublish:
		ack = r.publisher.Commit(ctx, actor)
	case data == flow.CBCancelPublish:
		ack = r.publisher.Cancel(ctx, actor)
	case data == flow.CBLike || data == flow.CBDislike:
		ack = r.vote(ctx, actor, q)
	case data == flow.CBSendInquiry:
		ack = r.inquirer.Submit(ctx, actor)
	case data == flow.CBCancelInquiry:
		ack = r.inquirer.Cancel(ctx, actor)
	case data == flow.CBSendCustomReply:
		ack = r.responder.Send(ctx, actor)
	case data == flow.CBCancelReply:
		ack = r.responder.Cancel(ctx, actor)
	case strings.HasPrefix(data, flow.CBSendQuickReply+"|"):
		ack = r.responder.PickQuick(ctx, actor, strings.TrimPrefix(data, flow.CBSendQuickReply+"|"))
	case strings.HasPrefix(data, flow.CBQuickReply+"|"):
		ack = r.targeted(ctx, actor, data, r.responder.BeginQuick)
	case strings.HasPrefix(data, flow.CBCustomReply+"|"):
		ack = r.targeted(ctx, actor, data, r.responder.BeginCustom)
	default:
		// "none" placeholders and unknown buttons just get dismissed.
	}

	r.answer(ctx, q, ack)
}

// targeted parses the "<action>|<consumer-id>" callback format shared by the
// reply entry buttons.
func (r *Router) targeted(ctx context.Context, actor domain.Actor, data string,
	fn func(context.Context, domain.Actor, int64) flow.Ack) flow.Ack {
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 {
		return flow.Ack{Text: "⚠️ Can't determine the user!", Alert: true}
	}
	target, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return flow.Ack{Text: "⚠️ Can't determine the user!", Alert: true}
	}
	return fn(ctx, actor, target)
}

func (r *Router) vote(ctx context.Context, actor domain.Actor, q *tgbotapi.CallbackQuery) flow.Ack {
	if q.Message == nil {
		return flow.Ack{Text: "⚠️ No reaction buttons here.", Alert: true}
	}
	ref := domain.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
	seedUp, seedDown := parseSeeds(q.Message.ReplyMarkup)
	choice := domain.VoteUp
	if q.Data == flow.CBDislike {
		choice = domain.VoteDown
	}
	return r.tally.Vote(ctx, actor, ref, choice, seedUp, seedDown)
}

var trailingCount = regexp.MustCompile(`(\d+)\s*$`)

// parseSeeds reads the counts still rendered on the post's first control row.
// They seed the counter store for posts published before this process
// started; unparsable labels fall back to zero.
func parseSeeds(markup *tgbotapi.InlineKeyboardMarkup) (up, down int) {
	if markup == nil || len(markup.InlineKeyboard) == 0 || len(markup.InlineKeyboard[0]) < 2 {
		return 0, 0
	}
	row := markup.InlineKeyboard[0]
	if m := trailingCount.FindStringSubmatch(row[0].Text); m != nil {
		up, _ = strconv.Atoi(m[1])
	}
	if m := trailingCount.FindStringSubmatch(row[1].Text); m != nil {
		down, _ = strconv.Atoi(m[1])
	}
	return up, down
}

func (r *Router) answer(ctx context.Context, q *tgbotapi.CallbackQuery, ack flow.Ack) {
	var cb tgbotapi.CallbackConfig
	if ack.Alert {
		cb = tgbotapi.NewCallbackWithAlert(q.ID, ack.Text)
	} else {
		cb = tgbotapi.NewCallback(q.ID, ack.Text)
	}
	if _, err := r.bot.API().Request(cb); err != nil {
		r.log.Warn("callback answer failed", "err", err)
	}
	if ack.StripControls && q.Message != nil {
		ref := domain.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
		if err := r.bot.EditKeyboard(ctx, ref, nil); err != nil {
			r.log.Warn("controls strip failed", "err", err)
		}
	}
}

func (r *Router) webhookInfo(ctx context.Context, actor domain.Actor) {
	info, err := r.bot.API().GetWebhookInfo()
	if err != nil {
		r.send(ctx, actor.ID, "webhook info unavailable")
		return
	}
	r.send(ctx, actor.ID, fmt.Sprintf("url: %s\npending: %d\nlast_error: %d %s",
		info.URL, info.PendingUpdateCount, info.LastErrorDate, info.LastErrorMessage))
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if _, err := r.bot.SendText(ctx, chatID, text, nil); err != nil {
		r.log.Error("send failed", "chat", chatID, "err", err)
	}
}

// content pulls the capturable payload out of a private message: its text, or
// exactly one media item with its caption.
func content(msg *tgbotapi.Message) (string, *domain.MediaItem) {
	switch {
	case msg.Text != "":
		return msg.Text, nil
	case len(msg.Photo) > 0:
		return "", &domain.MediaItem{Kind: domain.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return "", &domain.MediaItem{Kind: domain.MediaVideo, FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return "", &domain.MediaItem{Kind: domain.MediaDocument, FileID: msg.Document.FileID, Caption: msg.Caption}
	case msg.Audio != nil:
		return "", &domain.MediaItem{Kind: domain.MediaAudio, FileID: msg.Audio.FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return "", &domain.MediaItem{Kind: domain.MediaVoice, FileID: msg.Voice.FileID}
	}
	return "", nil
}
