package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name            string
		cb              *tele.Callback
		unique, payload string
	}{
		{name: "nil", cb: nil},
		{name: "already split", cb: &tele.Callback{Unique: "cancel", Data: "flow"}, unique: "cancel", payload: "flow"},
		{name: "raw", cb: &tele.Callback{Data: "\fcancel|flow"}, unique: "cancel", payload: "flow"},
		{name: "payload with separator", cb: &tele.Callback{Data: "\fpick|RM-1085|x"}, unique: "pick", payload: "RM-1085|x"},
		{name: "no payload", cb: &tele.Callback{Data: "\fcancel"}, unique: "cancel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, payload := Split(tt.cb)
			assert.Equal(t, tt.unique, unique)
			assert.Equal(t, tt.payload, payload)
		})
	}
	assert.Equal(t, "cancel", Key(&tele.Callback{Data: "\fcancel|"}))
}
