// Package keyboard builds the two markups flows use: a one-time reply
// keyboard of choices and an inline Cancel button.
package keyboard

import tele "gopkg.in/telebot.v4"

// CancelText labels the inline cancel button.
const CancelText = "❌ Cancel"

// Remove hides whatever reply keyboard the chat is showing.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Choices lays labels out perRow to a row as a one-time reply keyboard.
// With no labels it degrades to Remove so a stale keyboard is cleared.
func Choices(labels []string, perRow int) *tele.ReplyMarkup {
	if len(labels) == 0 {
		return Remove()
	}
	perRow = max(perRow, 1)
	m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	rows := make([]tele.Row, 0, (len(labels)+perRow-1)/perRow)
	for start := 0; start < len(labels); start += perRow {
		chunk := labels[start:min(start+perRow, len(labels))]
		btns := make([]tele.Btn, len(chunk))
		for i, label := range chunk {
			btns[i] = m.Text(label)
		}
		rows = append(rows, m.Row(btns...))
	}
	m.Reply(rows...)
	return m
}

// Cancel is an inline keyboard holding one button whose callback key is unique.
func Cancel(unique string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data(CancelText, unique)))
	return m
}
