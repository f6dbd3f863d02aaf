package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
)

func newTallyFixture() (*Tally, *fakeMessenger) {
	msgr := newFakeMessenger()
	return NewTally(msgr, store.NewVotes(), testLogger()), msgr
}

func TestVoteRerendersKeyboard(t *testing.T) {
	tally, msgr := newTallyFixture()
	ref := domain.MessageRef{ChatID: testDest, MessageID: testPost}
	voter := domain.Actor{ID: 301, Name: "Bob"}

	ack := tally.Vote(context.Background(), voter, ref, domain.VoteUp, 0, 0)
	assert.Equal(t, "Your like was recorded 😍", ack.Text)
	assert.False(t, ack.Alert)

	edit := msgr.lastEdit()
	require.NotNil(t, edit)
	assert.Equal(t, ref, edit.Ref)
	require.Len(t, edit.KB, 2, "vote row plus note link")
	assert.Equal(t, "😍 1", edit.KB[0][0].Label)
	assert.Equal(t, "😐 0", edit.KB[0][1].Label)
	assert.Contains(t, edit.KB[1][0].URL, "t.me/testbot?start=inq_-1001000_42")
}

func TestVoteOncePerUser(t *testing.T) {
	tally, _ := newTallyFixture()
	ref := domain.MessageRef{ChatID: testDest, MessageID: testPost}
	voter := domain.Actor{ID: 301, Name: "Bob"}
	ctx := context.Background()

	require.False(t, tally.Vote(ctx, voter, ref, domain.VoteUp, 0, 0).Alert)

	again := tally.Vote(ctx, voter, ref, domain.VoteDown, 0, 0)
	assert.True(t, again.Alert)
	assert.Equal(t, "You already reacted.", again.Text)
}

func TestVoteSeedsFromRenderedLabels(t *testing.T) {
	tally, msgr := newTallyFixture()
	ref := domain.MessageRef{ChatID: testDest, MessageID: testPost}

	// First sight of the post carries the counts already on the message, as
	// after a restart.
	ack := tally.Vote(context.Background(), domain.Actor{ID: 301}, ref, domain.VoteDown, 7, 3)
	assert.Equal(t, "Your dislike was recorded 😐", ack.Text)

	edit := msgr.lastEdit()
	require.NotNil(t, edit)
	assert.Equal(t, "😍 7", edit.KB[0][0].Label)
	assert.Equal(t, "😐 4", edit.KB[0][1].Label)

	// Later votes ignore the seeds; the counter store is authoritative now.
	tally.Vote(context.Background(), domain.Actor{ID: 302}, ref, domain.VoteUp, 99, 99)
	assert.Equal(t, "😍 8", msgr.lastEdit().KB[0][0].Label)
}

func TestVoteCountsSurviveRerenderFailure(t *testing.T) {
	tally, msgr := newTallyFixture()
	ref := domain.MessageRef{ChatID: testDest, MessageID: testPost}
	msgr.editErr = errors.New("message is not modified")

	ack := tally.Vote(context.Background(), domain.Actor{ID: 301}, ref, domain.VoteUp, 0, 0)
	assert.False(t, ack.Alert, "vote counts even when the edit is refused")

	msgr.editErr = nil
	tally.Vote(context.Background(), domain.Actor{ID: 302}, ref, domain.VoteUp, 0, 0)
	assert.Equal(t, "😍 2", msgr.lastEdit().KB[0][0].Label)
}

func TestVotesPerPostAreIndependent(t *testing.T) {
	tally, msgr := newTallyFixture()
	voter := domain.Actor{ID: 301}
	ctx := context.Background()

	require.False(t, tally.Vote(ctx, voter, domain.MessageRef{ChatID: testDest, MessageID: 1}, domain.VoteUp, 0, 0).Alert)
	require.False(t, tally.Vote(ctx, voter, domain.MessageRef{ChatID: testDest, MessageID: 2}, domain.VoteUp, 0, 0).Alert,
		"same voter may react on a different post")

	assert.Equal(t, "😍 1", msgr.lastEdit().KB[0][0].Label)
}
