package middleware

import tele "gopkg.in/telebot.v4"

// Locker provides per-user mutual exclusion.
type Locker interface {
	Lock(userID int64) func()
}

// Serialize processes updates of one user one at a time. Telebot runs
// handlers concurrently, so session and record mutations would otherwise
// interleave for a fast-typing user.
func Serialize(l Locker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			unlock := l.Lock(user.ID)
			defer unlock()
			return next(c)
		}
	}
}
