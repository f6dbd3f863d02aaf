package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

// Records is the inquiry ledger: the most recent record per consumer plus the
// (consumer, post) submission set that enforces one note per consumer per
// post for the life of the process.
type Records struct {
	mu        sync.RWMutex
	byUser    map[int64]*domain.InquiryRecord
	submitted map[string]bool
}

func NewRecords() *Records {
	return &Records{
		byUser:    make(map[int64]*domain.InquiryRecord),
		submitted: make(map[string]bool),
	}
}

func pairKey(consumerID int64, postID int) string {
	return fmt.Sprintf("%d_%d", consumerID, postID)
}

// Submitted reports whether the consumer already sent a note for this post.
func (r *Records) Submitted(consumerID int64, postID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.submitted[pairKey(consumerID, postID)]
}

// MarkSubmitted stamps the (consumer, post) pair. Never unset.
func (r *Records) MarkSubmitted(consumerID int64, postID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted[pairKey(consumerID, postID)] = true
}

// Put stores the record under its consumer id and returns the record it
// displaced, if that one was still unhandled. Callers log the displacement.
func (r *Records) Put(rec *domain.InquiryRecord) (displaced *domain.InquiryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old := r.byUser[rec.ConsumerID]; old != nil && !old.Handled() {
		displaced = old
	}
	r.byUser[rec.ConsumerID] = rec
	return displaced
}

func (r *Records) Get(consumerID int64) *domain.InquiryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[consumerID]
}

// SetStatus flips the record's delivery status.
func (r *Records) SetStatus(consumerID int64, status domain.RecordStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.byUser[consumerID]; rec != nil {
		rec.Status = status
	}
}

// ClaimHandled stamps the handler on the record, exactly once across
// administrators. A different admin claiming an already-handled record gets
// AlreadyHandledError; the same admin re-claiming is allowed (overwrite, not
// additive).
func (r *Records) ClaimHandled(consumerID int64, admin domain.Actor, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byUser[consumerID]
	if rec == nil {
		return domain.ErrNoActiveReply
	}
	if rec.Handled() && rec.HandledByID != admin.ID {
		return &domain.AlreadyHandledError{By: rec.HandledBy}
	}
	rec.HandledBy = admin.Name
	rec.HandledByID = admin.ID
	rec.HandledAt = at
	return nil
}

// ReleaseClaim undoes a claim whose delivery never happened. Only the
// claiming admin's own mark is cleared; anyone else's stays.
func (r *Records) ReleaseClaim(consumerID, adminID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byUser[consumerID]
	if rec == nil || rec.HandledByID != adminID {
		return
	}
	rec.HandledBy = ""
	rec.HandledByID = 0
	rec.HandledAt = time.Time{}
}
