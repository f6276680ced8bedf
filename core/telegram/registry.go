package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidCommand is returned for commands without a slash name, handler or description.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrDuplicate is returned when a command, alias or callback key is taken.
	ErrDuplicate = errors.New("already registered")
)

// Registry is the bot's table of slash commands and inline callback handlers.
// Commands are registered during wiring; callbacks may be added at any time.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string

	mu        sync.RWMutex
	callbacks map[string]tele.HandlerFunc

	onUnknownCallback tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback handler just
// answers the button press.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		onUnknownCallback: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func slashed(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds cmd under name, which must start with a slash. Aliases
// may be given with or without one.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	err := r.addCommand(name, cmd)
	if err != nil {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
	}
	return err
}

func (r *Registry) addCommand(name string, cmd commands.Command) error {
	if r == nil {
		return ErrInvalidCommand
	}
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return ErrInvalidCommand
	}
	if _, taken := r.resolve(name); taken {
		return fmt.Errorf("command %s: %w", name, ErrDuplicate)
	}
	for _, a := range cmd.Aliases {
		if _, taken := r.resolve(slashed(a)); taken {
			return fmt.Errorf("alias %s: %w", a, ErrDuplicate)
		}
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[slashed(a)] = name
	}
	return nil
}

func (r *Registry) resolve(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// LookupCommand finds a command by name or alias. The leading slash is optional.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	key, ok := r.resolve(slashed(name))
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns the registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// ListCommands returns commands sorted by name. With menuOnly set, hidden and
// role-restricted commands are left out.
func (r *Registry) ListCommands(menuOnly bool) []tele.Command {
	out := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if menuOnly && (cmd.Hidden || cmd.Restricted()) {
			continue
		}
		out = append(out, tele.Command{Text: name, Description: cmd.Description})
	}
	slices.SortFunc(out, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return out
}

// RegisterCallback binds an inline button key to h.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if r == nil || key == "" || h == nil {
		return fmt.Errorf("callback %q: invalid registration", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callbacks[key]; ok {
		return fmt.Errorf("callback %s: %w", key, ErrDuplicate)
	}
	r.callbacks[key] = h
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	h, ok := r.callbacks[key]
	r.mu.RUnlock()
	return h, ok
}

// ListCallbacks returns the registered callback keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// CallbackNotFound answers presses of buttons whose key nobody registered,
// typically left over from an earlier deployment.
func (r *Registry) CallbackNotFound() tele.HandlerFunc { return r.onUnknownCallback }

// PublishCommands replaces the bot's command menu with the public commands.
func (r *Registry) PublishCommands(bot *tele.Bot) error {
	if bot == nil {
		return errors.New("publish commands: nil bot")
	}
	menu := r.ListCommands(true)
	if err := bot.SetCommands(menu); err != nil {
		return fmt.Errorf("publish commands: %w", err)
	}
	return nil
}
