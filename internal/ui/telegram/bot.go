// Package telegram adapts the Telegram Bot API to the core's Messenger and
// Directory ports and routes inbound updates into the flows.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
)

// Bot wraps the Telegram client behind the two collaborator ports. Every API
// call is bounded by the underlying HTTP client's timeout, so a slow platform
// surfaces as an error instead of a hung session.
type Bot struct {
	api *tgbotapi.BotAPI
}

var (
	_ ports.Messenger = (*Bot)(nil)
	_ ports.Directory = (*Bot)(nil)
)

func NewBot(token string, timeout time.Duration) (*Bot, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Bot{api: api}, nil
}

// API exposes the raw client for transport-level work (webhook management).
func (b *Bot) API() *tgbotapi.BotAPI { return b.api }

func (b *Bot) SendText(ctx context.Context, chatID int64, text string, kb domain.Keyboard) (domain.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup := toMarkup(kb); markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send to %d: %w", chatID, err)
	}
	return refOf(&sent), nil
}

func (b *Bot) SendMedia(ctx context.Context, chatID int64, item domain.MediaItem, kb domain.Keyboard) (domain.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MessageRef{}, err
	}
	file := tgbotapi.FileID(item.FileID)
	markup := toMarkup(kb)

	var c tgbotapi.Chattable
	switch item.Kind {
	case domain.MediaPhoto:
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = item.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = *markup
		}
		c = cfg
	case domain.MediaVideo:
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = item.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = *markup
		}
		c = cfg
	case domain.MediaDocument:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = item.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = *markup
		}
		c = cfg
	case domain.MediaAudio:
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = item.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = *markup
		}
		c = cfg
	case domain.MediaVoice:
		cfg := tgbotapi.NewVoice(chatID, file)
		cfg.Caption = item.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			cfg.ReplyMarkup = *markup
		}
		c = cfg
	default:
		return domain.MessageRef{}, fmt.Errorf("unsupported media kind %q", item.Kind)
	}

	sent, err := b.api.Send(c)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send %s to %d: %w", item.Kind, chatID, err)
	}
	return refOf(&sent), nil
}

func (b *Bot) EditText(ctx context.Context, ref domain.MessageRef, text string, kb domain.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = toMarkup(kb)
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) EditKeyboard(ctx context.Context, ref domain.MessageRef, kb domain.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	markup := toMarkup(kb)
	if markup == nil {
		// Telegram removes the keyboard when handed an empty one.
		markup = &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	_, err := b.api.Request(tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, *markup))
	return err
}

func (b *Bot) Username(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.api.Self.UserName == "" {
		return "", fmt.Errorf("bot username unknown: %w", domain.ErrUnavailable)
	}
	return b.api.Self.UserName, nil
}

func (b *Bot) Resolve(ctx context.Context, handle string) (domain.Destination, error) {
	if err := ctx.Err(); err != nil {
		return domain.Destination{}, err
	}
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: handle},
	})
	if err != nil {
		return domain.Destination{}, fmt.Errorf("resolve %s: %w", handle, domain.ErrUnavailable)
	}
	return domain.Destination{ID: chat.ID, Kind: chat.Type, Title: chat.Title}, nil
}

func (b *Bot) Lookup(ctx context.Context, destID int64) (domain.Destination, error) {
	if err := ctx.Err(); err != nil {
		return domain.Destination{}, err
	}
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: destID},
	})
	if err != nil {
		return domain.Destination{}, fmt.Errorf("lookup %d: %w", destID, domain.ErrUnavailable)
	}
	return domain.Destination{ID: chat.ID, Kind: chat.Type, Title: chat.Title}, nil
}

func (b *Bot) IsPrivileged(ctx context.Context, destID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: destID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("role check %d in %d: %w", userID, destID, domain.ErrUnavailable)
	}
	return member.Status == "administrator" || member.Status == "creator", nil
}

func (b *Bot) PrivilegedMembers(ctx context.Context, destID int64) ([]domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	admins, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: destID},
	})
	if err != nil {
		return nil, fmt.Errorf("admin list for %d: %w", destID, domain.ErrUnavailable)
	}
	members := make([]domain.Member, 0, len(admins))
	for _, a := range admins {
		if a.User == nil {
			continue
		}
		members = append(members, domain.Member{
			ID:    a.User.ID,
			Name:  fullName(a.User),
			IsBot: a.User.IsBot,
		})
	}
	return members, nil
}

func toMarkup(kb domain.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Label, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
			}
		}
		rows = append(rows, btns)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func refOf(m *tgbotapi.Message) domain.MessageRef {
	return domain.MessageRef{ChatID: m.Chat.ID, MessageID: m.MessageID}
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}
