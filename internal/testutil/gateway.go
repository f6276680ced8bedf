package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/gateway"
)

// Sent is one outbound operation captured by FakeGateway.
type Sent struct {
	Op      string
	ChatID  int64
	ReplyTo int
	Text    string
	Format  gateway.Format
	Labels  []string
	Source  int64
	Refs    []int
	// MessageID is the copied, forwarded or deleted message.
	MessageID int

	RemoveKeyboard bool
	Cancelable     bool
}

// FakeGateway records every call. Chats lists ids LookupChat resolves;
// FailCopyTo and FailDeliver make the matching calls fail.
type FakeGateway struct {
	mu     sync.Mutex
	nextID int
	sent   []Sent

	Chats       map[int64]gateway.ChatInfo
	FailCopyTo  map[int64]bool
	FailDeliver bool
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway returns an empty recorder.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Chats:      map[int64]gateway.ChatInfo{},
		FailCopyTo: map[int64]bool{},
	}
}

func (f *FakeGateway) add(s Sent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, s)
	return f.nextID
}

// Sent returns a copy of the recorded operations.
func (f *FakeGateway) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// Last returns the most recent operation or a zero value.
func (f *FakeGateway) Last() Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Sent{}
	}
	return f.sent[len(f.sent)-1]
}

// Ops returns the recorded operation names in order.
func (f *FakeGateway) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Op)
	}
	return out
}

// Reset drops recorded operations.
func (f *FakeGateway) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *FakeGateway) Reply(_ context.Context, r gateway.Reply) error {
	f.add(Sent{
		Op: "reply", ChatID: r.ChatID, ReplyTo: r.ReplyTo, Text: r.Text, Format: r.Format,
		RemoveKeyboard: r.RemoveKeyboard, Cancelable: r.Cancelable,
	})
	return nil
}

func (f *FakeGateway) Send(_ context.Context, chatID int64, text string, format gateway.Format) (int, error) {
	return f.add(Sent{Op: "send", ChatID: chatID, Text: text, Format: format}), nil
}

func (f *FakeGateway) Post(_ context.Context, channelID int64, text string, format gateway.Format) error {
	f.add(Sent{Op: "post", ChatID: channelID, Text: text, Format: format})
	return nil
}

func (f *FakeGateway) PresentChoices(_ context.Context, chatID int64, replyTo int, text string, labels []string) error {
	f.add(Sent{Op: "choices", ChatID: chatID, ReplyTo: replyTo, Text: text, Labels: append([]string(nil), labels...)})
	return nil
}

func (f *FakeGateway) DeliverMedia(_ context.Context, chatID int64, replyTo int, source int64, refs []int) error {
	if f.FailDeliver {
		return fmt.Errorf("%w: copy", errs.ErrDeliveryFailure)
	}
	f.add(Sent{Op: "deliver", ChatID: chatID, ReplyTo: replyTo, Source: source, Refs: append([]int(nil), refs...)})
	return nil
}

func (f *FakeGateway) Forward(_ context.Context, dest, fromChat int64, messageID int) error {
	f.add(Sent{Op: "forward", ChatID: dest, Source: fromChat, MessageID: messageID})
	return nil
}

func (f *FakeGateway) Copy(_ context.Context, dest, fromChat int64, messageID int) error {
	if f.FailCopyTo[dest] {
		return fmt.Errorf("%w: copy to %d", errs.ErrDeliveryFailure, dest)
	}
	f.add(Sent{Op: "copy", ChatID: dest, Source: fromChat, MessageID: messageID})
	return nil
}

func (f *FakeGateway) Delete(_ context.Context, chatID int64, messageID int) error {
	f.add(Sent{Op: "delete", ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *FakeGateway) LookupChat(_ context.Context, id int64) (gateway.ChatInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.Chats[id]
	if !ok {
		return gateway.ChatInfo{}, fmt.Errorf("lookup %d: %w", id, errs.ErrLookupFailure)
	}
	return info, nil
}
