// Package flow implements the conversational state machines: publishing,
// inquiries, administrator replies and reaction tallies. Flows speak only to
// the Messenger and Directory ports and never to the platform library.
package flow

import (
	"fmt"
	"regexp"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
	"github.com/jop2000ksa-sketch/jop2000/internal/linkcode"
)

// Callback identifiers carried in inline buttons. These are wire state: they
// survive process restarts inside already-rendered keyboards, so they never
// change.
const (
	CBDoneInput       = "admin_done_input"
	CBReactionsYes    = "set_reactions_yes"
	CBReactionsNo     = "set_reactions_no"
	CBPreview         = "preview_post"
	CBConfirmPublish  = "confirm_publish"
	CBCancelPublish   = "cancel_publish"
	CBLike            = "like"
	CBDislike         = "dislike"
	CBSendInquiry     = "send_inquiry"
	CBCancelInquiry   = "cancel_inquiry"
	CBQuickReply      = "quick_reply"
	CBCustomReply     = "custom_reply"
	CBSendQuickReply  = "send_quick_reply"
	CBSendCustomReply = "send_custom_reply"
	CBCancelReply     = "cancel_reply"
)

// Ack is what a callback handler wants shown on the pressed button: a toast,
// or an alert for rejections. StripControls additionally removes the keyboard
// from the message the button lived on.
type Ack struct {
	Text          string
	Alert         bool
	StripControls bool
}

var linkPattern = regexp.MustCompile(`(https?://\S+)`)

// autoHideLinks rewrites bare URLs as "click here" anchors. The only rich
// formatting this system does.
func autoHideLinks(text string) string {
	return linkPattern.ReplaceAllString(text, `<a href="$1">click here</a>`)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func noteLinkRow(botUsername, token string) []domain.Button {
	return []domain.Button{{
		Label: "💬 Raise a note to the admins",
		URL:   linkcode.StartLink(botUsername, token),
	}}
}

func voteRow(up, down int) []domain.Button {
	return []domain.Button{
		{Label: fmt.Sprintf("😍 %d", up), Data: CBLike},
		{Label: fmt.Sprintf("😐 %d", down), Data: CBDislike},
	}
}
