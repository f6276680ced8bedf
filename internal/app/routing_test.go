package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/internal/config"

	tele "gopkg.in/telebot.v4"
)

const adminID = 1

type apiCall struct {
	Method string
	Text   string
}

// fakeTelegram answers every Bot API method with a plain message and keeps
// the calls for inspection.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var params struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(body, &params)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: path.Base(r.URL.Path), Text: params.Text})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":100,"date":0,"chat":{"id":1,"type":"private"}}}`)
}

func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		if c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// liveBot wires the app's middlewares and routes into a synchronous bot that
// talks to a fake Bot API.
func liveBot(t *testing.T, cfg *config.Config) (*App, *tele.Bot, *fakeTelegram) {
	t.Helper()
	api := &fakeTelegram{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	a, err := New(context.Background(), cfg, Hooks{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	bot, err := tele.NewBot(tele.Settings{
		URL:         srv.URL,
		Token:       "123:abc",
		Offline:     true,
		Synchronous: true,
	})
	require.NoError(t, err)
	for _, mw := range opts.Middlewares {
		bot.Use(mw.Use)
	}
	for _, r := range opts.Routes {
		bot.Handle(r.Endpoint, r.Handler)
	}
	require.NoError(t, opts.OnStart(context.Background(), tg.Runtime{Bot: bot}))
	return a, bot, api
}

func adminMessage(id int, m *tele.Message) tele.Update {
	m.ID = id
	m.Sender = &tele.User{ID: adminID, FirstName: "Admin"}
	m.Chat = &tele.Chat{ID: adminID, Type: tele.ChatPrivate}
	return tele.Update{ID: id, Message: m}
}

func inFlow(a *App, bot *tele.Bot) bool {
	return a.handler.InProgress(bot.NewContext(adminMessage(0, &tele.Message{})))
}

func TestForwardedMediaReachesLookup(t *testing.T) {
	kinds := map[string]*tele.Message{
		"voice":      {Voice: &tele.Voice{}},
		"audio":      {Audio: &tele.Audio{}},
		"video_note": {VideoNote: &tele.VideoNote{}},
		"contact":    {Contact: &tele.Contact{PhoneNumber: "+10000000000", FirstName: "C"}},
		"location":   {Location: &tele.Location{Lat: 1, Lng: 2}},
	}
	for name, msg := range kinds {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.Flows.OnLookupFailure = config.LookupExit
			a, bot, api := liveBot(t, cfg)

			bot.ProcessUpdate(adminMessage(1, &tele.Message{Text: "/get_id"}))
			require.True(t, inFlow(a, bot))
			api.reset()

			msg.Origin = &tele.MessageOrigin{Type: "user", Sender: &tele.User{ID: 555}}
			bot.ProcessUpdate(adminMessage(2, msg))

			assert.False(t, inFlow(a, bot))
			assert.Contains(t, strings.Join(api.texts(), "\n"), "555")
		})
	}
}

func TestUnsupportedBroadcastExits(t *testing.T) {
	a, bot, api := liveBot(t, baseConfig(t))

	bot.ProcessUpdate(adminMessage(1, &tele.Message{Text: "/notify_all"}))
	require.True(t, inFlow(a, bot))
	api.reset()

	bot.ProcessUpdate(adminMessage(2, &tele.Message{Audio: &tele.Audio{FileName: "song.mp3"}}))

	assert.False(t, inFlow(a, bot))
	assert.Contains(t, api.texts(), "This kind of message cannot be sent to users. Nothing was notified.")
}
