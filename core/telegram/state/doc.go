// Package state tracks per-user conversation sessions for Telegram bots.
//
// A Tracker maps a user to at most one active Session and routes incoming
// events to the handler registered for the session's state. Sessions live in
// an injected Store (memory or redis). Users without a session are idle and
// their events fall through to command handling.
package state
