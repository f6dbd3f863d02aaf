package flow

import (
	"context"
	"log/slog"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
	"github.com/jop2000ksa-sketch/jop2000/internal/linkcode"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

// Tally counts reactions on published posts and enforces one vote per user
// per post, for either choice.
type Tally struct {
	msgr  ports.Messenger
	votes *store.Votes
	log   *slog.Logger
}

func NewTally(msgr ports.Messenger, votes *store.Votes, log *slog.Logger) *Tally {
	return &Tally{msgr: msgr, votes: votes, log: log}
}

// Vote registers a reaction on the post at ref and re-renders its control
// rows. seedUp/seedDown come from the labels currently on the message; they
// only matter the first time this process sees the post, so counts survive a
// restart as well as the rendering does.
func (t *Tally) Vote(ctx context.Context, voter domain.Actor, ref domain.MessageRef, choice domain.VoteChoice, seedUp, seedDown int) Ack {
	up, down, err := t.votes.Vote(ref, voter.ID, choice, seedUp, seedDown)
	if err != nil {
		return Ack{Text: "You already reacted.", Alert: true}
	}

	rows := domain.Keyboard{voteRow(up, down)}
	if username, uerr := t.msgr.Username(ctx); uerr == nil {
		token := linkcode.Encode(ref.ChatID, ref.MessageID)
		rows = append(rows, noteLinkRow(username, token))
	} else {
		t.log.Warn("bot username lookup failed", "err", uerr)
	}
	// Stale messages can refuse the edit; the vote still counted.
	if eerr := t.msgr.EditKeyboard(ctx, ref, rows); eerr != nil {
		t.log.Warn("reaction rerender failed", "chat", ref.ChatID, "message", ref.MessageID, "err", eerr)
	}

	if choice == domain.VoteDown {
		return Ack{Text: "Your dislike was recorded 😐"}
	}
	return Ack{Text: "Your like was recorded 😍"}
}
