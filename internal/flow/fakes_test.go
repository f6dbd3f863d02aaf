package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/core/ports"
)

// fakeMessenger records every delivery so tests can assert on what a flow
// rendered where.
type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	username string
	sendErr  error
	editErr  error
	// onSend, when set, runs at delivery entry before any state changes, so
	// tests can hold a send open and race another caller into that window.
	onSend func(chatID int64)
}

type sentMessage struct {
	Chat  int64
	Text  string
	Media *domain.MediaItem
	KB    domain.Keyboard
}

type editedMessage struct {
	Ref  domain.MessageRef
	Text string
	KB   domain.Keyboard
}

var _ ports.Messenger = (*fakeMessenger)(nil)

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{username: "testbot"}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, kb domain.Keyboard) (domain.MessageRef, error) {
	if f.onSend != nil {
		f.onSend(chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return domain.MessageRef{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{Chat: chatID, Text: text, KB: kb})
	return domain.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, chatID int64, item domain.MediaItem, kb domain.Keyboard) (domain.MessageRef, error) {
	if f.onSend != nil {
		f.onSend(chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return domain.MessageRef{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{Chat: chatID, Media: &item, KB: kb})
	return domain.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) EditText(_ context.Context, ref domain.MessageRef, text string, kb domain.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{Ref: ref, Text: text, KB: kb})
	return nil
}

func (f *fakeMessenger) EditKeyboard(_ context.Context, ref domain.MessageRef, kb domain.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{Ref: ref, KB: kb})
	return nil
}

func (f *fakeMessenger) Username(context.Context) (string, error) {
	if f.username == "" {
		return "", fmt.Errorf("no username: %w", domain.ErrUnavailable)
	}
	return f.username, nil
}

// sentTo returns every message delivered to one chat.
func (f *fakeMessenger) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Chat == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) lastEdit() *editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return nil
	}
	e := f.edits[len(f.edits)-1]
	return &e
}

// fakeDirectory serves membership state wholly from maps.
type fakeDirectory struct {
	mu         sync.Mutex
	dests      map[int64]domain.Destination
	handles    map[string]domain.Destination
	privileged map[int64]map[int64]bool
	members    map[int64][]domain.Member
	err        error
}

var _ ports.Directory = (*fakeDirectory)(nil)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		dests:      make(map[int64]domain.Destination),
		handles:    make(map[string]domain.Destination),
		privileged: make(map[int64]map[int64]bool),
		members:    make(map[int64][]domain.Member),
	}
}

func (f *fakeDirectory) addDest(id int64, kind string) {
	f.dests[id] = domain.Destination{ID: id, Kind: kind}
}

func (f *fakeDirectory) grant(destID, userID int64) {
	if f.privileged[destID] == nil {
		f.privileged[destID] = make(map[int64]bool)
	}
	f.privileged[destID][userID] = true
}

func (f *fakeDirectory) revoke(destID, userID int64) {
	delete(f.privileged[destID], userID)
}

func (f *fakeDirectory) Resolve(_ context.Context, handle string) (domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Destination{}, f.err
	}
	d, ok := f.handles[handle]
	if !ok {
		return domain.Destination{}, domain.ErrUnavailable
	}
	return d, nil
}

func (f *fakeDirectory) Lookup(_ context.Context, destID int64) (domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Destination{}, f.err
	}
	d, ok := f.dests[destID]
	if !ok {
		return domain.Destination{}, domain.ErrUnavailable
	}
	return d, nil
}

func (f *fakeDirectory) IsPrivileged(_ context.Context, destID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.privileged[destID][userID], nil
}

func (f *fakeDirectory) PrivilegedMembers(_ context.Context, destID int64) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.members[destID], nil
}
