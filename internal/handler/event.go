package handler

import (
	"strings"

	"github.com/m3rciful/lumiabot/internal/model"

	tele "gopkg.in/telebot.v4"
)

// Kind classifies an incoming message by content.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindDocument
	KindPhoto
	KindVideo
	KindSticker
	KindAnimation
)

// Document describes an attached file.
type Document struct {
	FileName string
	MIME     string
}

// Incoming is the platform independent view of a user message that the
// session handlers consume.
type Incoming struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Kind      Kind
	// Text is the message text or the media caption.
	Text string
	// Payload is what follows the command token, as sent.
	Payload  string
	Document *Document
	Profile  model.Profile
	// Forwarded is set for forwarded messages; ForwardedFrom only when the
	// original sender is visible.
	Forwarded     bool
	ForwardedFrom *model.Profile
}

// Args splits the command payload on whitespace.
func (in Incoming) Args() []string {
	return strings.Fields(in.Payload)
}

// Broadcastable reports whether the message kind can be copied to users.
func (in Incoming) Broadcastable() bool {
	return in.Kind != KindOther
}

func profileOf(u *tele.User) model.Profile {
	if u == nil {
		return model.Profile{}
	}
	return model.Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		IsBot:     u.IsBot,
	}
}

// FromMessage converts a telebot message sent by sender.
func FromMessage(sender *tele.User, msg *tele.Message) Incoming {
	in := Incoming{Profile: profileOf(sender)}
	in.UserID = in.Profile.ID
	if msg == nil {
		return in
	}
	in.MessageID = msg.ID
	if msg.Chat != nil {
		in.ChatID = msg.Chat.ID
	}
	in.Payload = msg.Payload
	in.Text = msg.Text
	if in.Text == "" {
		in.Text = msg.Caption
	}

	switch {
	case msg.Animation != nil:
		in.Kind = KindAnimation
	case msg.Document != nil:
		in.Kind = KindDocument
		in.Document = &Document{FileName: msg.Document.FileName, MIME: msg.Document.MIME}
	case msg.Photo != nil:
		in.Kind = KindPhoto
	case msg.Video != nil:
		in.Kind = KindVideo
	case msg.Sticker != nil:
		in.Kind = KindSticker
	case msg.Text != "":
		in.Kind = KindText
	}

	if msg.Origin != nil {
		in.Forwarded = true
		if msg.Origin.Sender != nil {
			p := profileOf(msg.Origin.Sender)
			in.ForwardedFrom = &p
		}
	}
	return in
}

// FromContext converts the update carried by c. Callback updates use the
// message the button is attached to.
func FromContext(c tele.Context) Incoming {
	if cb := c.Callback(); cb != nil {
		in := FromMessage(c.Sender(), cb.Message)
		in.Kind = KindOther
		in.Text = ""
		in.Payload = ""
		return in
	}
	return FromMessage(c.Sender(), c.Message())
}
