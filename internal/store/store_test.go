package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

func TestBindingsOverwrite(t *testing.T) {
	b := NewBindings()
	assert.Zero(t, b.Get(7))
	b.Bind(7, -100)
	assert.Equal(t, int64(-100), b.Get(7))
	b.Bind(7, -200)
	assert.Equal(t, int64(-200), b.Get(7))
}

func TestPublishSessionResetKeepsBinding(t *testing.T) {
	s := NewPublishSessions()
	s.Put(1, &domain.PublishSession{DestinationID: -5, Text: "draft", AwaitingInput: true})
	s.Reset(1)
	sess := s.Get(1)
	require.NotNil(t, sess)
	assert.Equal(t, int64(-5), sess.DestinationID)
	assert.Empty(t, sess.Text)
	assert.False(t, sess.AwaitingInput)
}

func TestKeyedTryLock(t *testing.T) {
	k := NewKeyed()
	require.True(t, k.TryAcquire("a"))
	assert.False(t, k.TryAcquire("a"))
	assert.True(t, k.TryAcquire("b"))
	k.Release("a")
	assert.True(t, k.TryAcquire("a"))
}

func TestKeyedConcurrentSingleWinner(t *testing.T) {
	k := NewKeyed()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if k.TryAcquire("submit") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestVotesOncePerVoter(t *testing.T) {
	v := NewVotes()
	ref := domain.MessageRef{ChatID: -1, MessageID: 10}

	up, down, err := v.Vote(ref, 100, domain.VoteUp, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	// Same voter, other choice: rejected without mutating counts.
	up, down, err = v.Vote(ref, 100, domain.VoteDown, 0, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	up, down, err = v.Vote(ref, 101, domain.VoteDown, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, down)
}

func TestVotesSeedOnlyOnFirstSight(t *testing.T) {
	v := NewVotes()
	ref := domain.MessageRef{ChatID: -1, MessageID: 11}

	up, down, err := v.Vote(ref, 1, domain.VoteUp, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, up)
	assert.Equal(t, 3, down)

	// Later seeds are ignored once the post is tracked.
	up, down, err = v.Vote(ref, 2, domain.VoteDown, 99, 99)
	require.NoError(t, err)
	assert.Equal(t, 6, up)
	assert.Equal(t, 4, down)
}

func TestVotesConcurrentSameVoter(t *testing.T) {
	v := NewVotes()
	ref := domain.MessageRef{ChatID: -2, MessageID: 1}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Vote(ref, 42, domain.VoteUp, 0, 0)
		}()
	}
	wg.Wait()
	up, down, ok := v.Counts(ref)
	require.True(t, ok)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)
}

func TestRecordsSubmittedPairs(t *testing.T) {
	r := NewRecords()
	assert.False(t, r.Submitted(1, 42))
	r.MarkSubmitted(1, 42)
	assert.True(t, r.Submitted(1, 42))
	assert.False(t, r.Submitted(1, 43))
	assert.False(t, r.Submitted(2, 42))
}

func TestRecordsPutReportsDisplacedUnhandled(t *testing.T) {
	r := NewRecords()
	first := &domain.InquiryRecord{ConsumerID: 1, PostID: 42}
	assert.Nil(t, r.Put(first))

	// Unhandled record displaced by a newer one is reported to the caller.
	second := &domain.InquiryRecord{ConsumerID: 1, PostID: 43}
	assert.Same(t, first, r.Put(second))

	// A handled record is settled history; displacing it is silent.
	second.HandledByID = 9
	third := &domain.InquiryRecord{ConsumerID: 1, PostID: 44}
	assert.Nil(t, r.Put(third))
}

func TestClaimHandledExactlyOnce(t *testing.T) {
	r := NewRecords()
	r.Put(&domain.InquiryRecord{ConsumerID: 5, PostID: 1})

	alice := domain.Actor{ID: 10, Name: "Alice"}
	bob := domain.Actor{ID: 11, Name: "Bob"}
	now := time.Now()

	require.NoError(t, r.ClaimHandled(5, alice, now))

	err := r.ClaimHandled(5, bob, now)
	var handled *domain.AlreadyHandledError
	require.ErrorAs(t, err, &handled)
	assert.Equal(t, "Alice", handled.By)

	// Same admin re-claiming is an overwrite, not an error.
	require.NoError(t, r.ClaimHandled(5, alice, now.Add(time.Minute)))

	rec := r.Get(5)
	assert.Equal(t, int64(10), rec.HandledByID)
}

func TestReleaseClaimOnlyOwn(t *testing.T) {
	r := NewRecords()
	r.Put(&domain.InquiryRecord{ConsumerID: 5, PostID: 1})

	alice := domain.Actor{ID: 10, Name: "Alice"}
	require.NoError(t, r.ClaimHandled(5, alice, time.Now()))

	// Another admin's release is a no-op.
	r.ReleaseClaim(5, 11)
	assert.Equal(t, int64(10), r.Get(5).HandledByID)

	r.ReleaseClaim(5, 10)
	rec := r.Get(5)
	assert.False(t, rec.Handled())
	assert.Empty(t, rec.HandledBy)
	assert.True(t, rec.HandledAt.IsZero())

	// The record is claimable again after release.
	bob := domain.Actor{ID: 11, Name: "Bob"}
	require.NoError(t, r.ClaimHandled(5, bob, time.Now()))
	assert.Equal(t, int64(11), r.Get(5).HandledByID)
}

func TestClaimHandledConcurrentSingleClaimant(t *testing.T) {
	r := NewRecords()
	r.Put(&domain.InquiryRecord{ConsumerID: 5, PostID: 1})

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := 0
	for i := 0; i < 20; i++ {
		admin := domain.Actor{ID: int64(100 + i), Name: "admin"}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.ClaimHandled(5, admin, time.Now()); err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claimed)
}

func TestReplySlotsPerAdmin(t *testing.T) {
	s := NewReplySlots()
	s.Put(&domain.ReplyDraft{AdminID: 1, TargetID: 100})
	s.Put(&domain.ReplyDraft{AdminID: 2, TargetID: 200})

	require.NotNil(t, s.Get(1))
	require.NotNil(t, s.Get(2))
	assert.Equal(t, int64(100), s.Get(1).TargetID)

	taken := s.Take(1)
	require.NotNil(t, taken)
	assert.Nil(t, s.Get(1))
	assert.NotNil(t, s.Get(2))
	assert.Nil(t, s.Take(1))
}

func TestReplySlotsCatalogStaging(t *testing.T) {
	s := NewReplySlots()
	s.Stage("100_0", 100, "thanks")
	target, text, ok := s.Staged("100_0")
	require.True(t, ok)
	assert.Equal(t, int64(100), target)
	assert.Equal(t, "thanks", text)

	_, _, ok = s.Staged("100_1")
	assert.False(t, ok)
}

func TestActorsSerializePerID(t *testing.T) {
	a := NewActors()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := a.Lock(7)
			counter++ // safe only if the per-actor lock serializes
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}
