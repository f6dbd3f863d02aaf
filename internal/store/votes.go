package store

import (
	"fmt"
	"sync"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

// Votes is the explicit reaction counter store, keyed by the post's
// (chat, message) pair, plus the per-post voter set behind the vote-once
// guarantee. A post not seen since process start is seeded from whatever
// counts its rendered labels still carry.
type Votes struct {
	mu     sync.Mutex
	counts map[string]*voteCounts
	voters map[string]map[int64]bool
}

type voteCounts struct {
	Up   int
	Down int
}

func NewVotes() *Votes {
	return &Votes{
		counts: make(map[string]*voteCounts),
		voters: make(map[string]map[int64]bool),
	}
}

func postKey(ref domain.MessageRef) string {
	return fmt.Sprintf("%d_%d", ref.ChatID, ref.MessageID)
}

// Vote registers one vote and returns the new counts. seedUp/seedDown are the
// counts parsed off the post's current labels, used only the first time this
// process sees the post. A repeat voter gets ErrAlreadyVoted and the counts
// stay untouched.
func (v *Votes) Vote(ref domain.MessageRef, voterID int64, choice domain.VoteChoice, seedUp, seedDown int) (up, down int, err error) {
	key := postKey(ref)
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.counts[key]
	if !ok {
		c = &voteCounts{Up: seedUp, Down: seedDown}
		v.counts[key] = c
	}
	set, ok := v.voters[key]
	if !ok {
		set = make(map[int64]bool)
		v.voters[key] = set
	}
	if set[voterID] {
		return c.Up, c.Down, domain.ErrAlreadyVoted
	}
	set[voterID] = true
	if choice == domain.VoteDown {
		c.Down++
	} else {
		c.Up++
	}
	return c.Up, c.Down, nil
}

// Counts returns the stored tally for a post, or (0, 0, false) when the post
// has not been voted on since process start.
func (v *Votes) Counts(ref domain.MessageRef) (up, down int, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.counts[postKey(ref)]
	if !ok {
		return 0, 0, false
	}
	return c.Up, c.Down, true
}
