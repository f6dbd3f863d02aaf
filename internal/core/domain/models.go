package domain

import "time"

// MediaKind identifies the carrier of a media attachment.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
)

// MediaItem is a single attachment referenced by the platform's file id.
type MediaItem struct {
	Kind    MediaKind
	FileID  string
	Caption string
}

// MessageRef points at a delivered message so it can be edited or deleted later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Zero reports whether the ref has never been set.
func (r MessageRef) Zero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// Button is one inline control. Data and URL are mutually exclusive.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Keyboard is rendered as rows of inline controls under a message.
type Keyboard [][]Button

// Destination is a feed (channel or group) posts are published into.
type Destination struct {
	ID    int64
	Kind  string // "channel", "supergroup", "group"
	Title string
}

// Member is one privileged member of a destination as reported live.
type Member struct {
	ID    int64
	Name  string
	IsBot bool
}

// Actor is the user driving a flow, as seen on the inbound event.
type Actor struct {
	ID   int64
	Name string
}

// PublishSession tracks one publisher's in-flight post. Text and Media are
// last-write-wins slots; both absent means the draft is empty.
type PublishSession struct {
	DestinationID int64
	Text          string
	Media         *MediaItem
	AwaitingInput bool
	ShowReactions *bool // nil until the publisher chooses
	Controls      MessageRef
}

// Draft reports whether the session carries anything publishable.
func (s *PublishSession) Draft() bool { return s.Text != "" || s.Media != nil }

// InquiryStage is the consumer-side compose state.
type InquiryStage string

const (
	StageComposing InquiryStage = "awaiting_input"
	StagePreview   InquiryStage = "preview"
)

// InquirySession tracks one consumer's in-flight note. PostID and
// DestinationID are the correlation anchor and never change after open.
type InquirySession struct {
	Stage         InquiryStage
	Text          string
	Media         []MediaItem
	PostID        int
	DestinationID int64
	Controls      MessageRef
}

// RecordStatus is the delivery state of a submitted inquiry.
type RecordStatus string

const (
	StatusPendingSend RecordStatus = "pending_send"
	StatusSent        RecordStatus = "sent"
)

// InquiryRecord is the process-lifetime record of a submitted note and how it
// was handled. HandledBy fields are stamped once by whichever administrator
// replies first.
type InquiryRecord struct {
	ID            string
	ConsumerID    int64
	ConsumerName  string
	Text          string
	Media         []MediaItem
	Status        RecordStatus
	SubmittedAt   time.Time
	PostID        int
	DestinationID int64
	HandledBy     string
	HandledByID   int64
	HandledAt     time.Time
}

// Handled reports whether any administrator has already replied.
func (r *InquiryRecord) Handled() bool { return r.HandledByID != 0 }

// ReplyDraft is an administrator's staged reply to one consumer.
type ReplyDraft struct {
	AdminID  int64
	TargetID int64
	Text     string
	Media    *MediaItem
}

// VoteChoice is one of the two reaction buttons on a published post.
type VoteChoice string

const (
	VoteUp   VoteChoice = "like"
	VoteDown VoteChoice = "dislike"
)
