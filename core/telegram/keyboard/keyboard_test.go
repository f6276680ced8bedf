package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoicesLayout(t *testing.T) {
	m := Choices([]string{"RM-1085", "RM-1104", "RM-1116"}, 2)
	require.Len(t, m.ReplyKeyboard, 2)
	assert.True(t, m.ResizeKeyboard)
	assert.True(t, m.OneTimeKeyboard)
	assert.Len(t, m.ReplyKeyboard[0], 2)
	assert.Equal(t, "RM-1085", m.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "RM-1116", m.ReplyKeyboard[1][0].Text)

	single := Choices([]string{"A", "B"}, 0)
	assert.Len(t, single.ReplyKeyboard, 2)
}

func TestChoicesEmptyRemoves(t *testing.T) {
	m := Choices(nil, 2)
	assert.True(t, m.RemoveKeyboard)
	assert.Empty(t, m.ReplyKeyboard)
}

func TestCancel(t *testing.T) {
	m := Cancel("cancel")
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 1)
	btn := m.InlineKeyboard[0][0]
	assert.Equal(t, CancelText, btn.Text)
	assert.Equal(t, "cancel", btn.Unique)
}
