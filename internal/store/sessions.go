package store

import (
	"sync"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

// PublishSessions keeps at most one open publish session per actor.
type PublishSessions struct {
	mu sync.RWMutex
	m  map[int64]*domain.PublishSession
}

func NewPublishSessions() *PublishSessions {
	return &PublishSessions{m: make(map[int64]*domain.PublishSession)}
}

func (s *PublishSessions) Get(actorID int64) *domain.PublishSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[actorID]
}

func (s *PublishSessions) Put(actorID int64, sess *domain.PublishSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[actorID] = sess
}

// Reset collapses the session back to its binding only. The destination id is
// explicitly preserved across commit and cancel.
func (s *PublishSessions) Reset(actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.m[actorID]; sess != nil {
		s.m[actorID] = &domain.PublishSession{DestinationID: sess.DestinationID}
	}
}

// InquirySessions keeps at most one open inquiry session per consumer.
type InquirySessions struct {
	mu sync.RWMutex
	m  map[int64]*domain.InquirySession
}

func NewInquirySessions() *InquirySessions {
	return &InquirySessions{m: make(map[int64]*domain.InquirySession)}
}

func (s *InquirySessions) Get(consumerID int64) *domain.InquirySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[consumerID]
}

func (s *InquirySessions) Put(consumerID int64, sess *domain.InquirySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[consumerID] = sess
}

func (s *InquirySessions) Delete(consumerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, consumerID)
}

// ReplySlots keeps each administrator's in-flight reply draft, plus the
// staged canned-reply catalog keyed by "<target>_<index>".
type ReplySlots struct {
	mu      sync.RWMutex
	drafts  map[int64]*domain.ReplyDraft
	catalog map[string]catalogEntry
}

type catalogEntry struct {
	TargetID int64
	Text     string
}

func NewReplySlots() *ReplySlots {
	return &ReplySlots{
		drafts:  make(map[int64]*domain.ReplyDraft),
		catalog: make(map[string]catalogEntry),
	}
}

func (s *ReplySlots) Get(adminID int64) *domain.ReplyDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drafts[adminID]
}

func (s *ReplySlots) Put(draft *domain.ReplyDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.AdminID] = draft
}

// Take removes and returns the admin's draft, or nil if none is open.
func (s *ReplySlots) Take(adminID int64) *domain.ReplyDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drafts[adminID]
	delete(s.drafts, adminID)
	return d
}

func (s *ReplySlots) Clear(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, adminID)
}

// Stage records one canned reply under its lookup key. The catalog is
// regenerated per quick-reply invocation, so stale keys just overwrite.
func (s *ReplySlots) Stage(key string, targetID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[key] = catalogEntry{TargetID: targetID, Text: text}
}

// Staged resolves a catalog key back to its target and text.
func (s *ReplySlots) Staged(key string) (int64, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.catalog[key]
	return e.TargetID, e.Text, ok
}
