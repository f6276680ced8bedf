package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets n of every m events through. A zero ratio allows all.
type ratioSampler struct {
	mu   sync.Mutex
	n, m int
	seen int
}

func newRatioSampler(n, m int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(n, m)
	return s
}

func (s *ratioSampler) Set(n, m int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || m <= 0 {
		n, m = 0, 0
	}
	s.n, s.m, s.seen = min(n, m), m, 0
}

func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == 0 {
		return true
	}
	s.seen = s.seen%s.m + 1
	return s.seen <= s.n
}

// parseRatio accepts "n/m" or "m" (meaning 1/m). Unparsable or
// non-positive input yields 0, 0.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		m, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil || n <= 0 || m <= 0 {
			return 0, 0
		}
		return n, m
	}
	m, err := strconv.Atoi(raw)
	if err != nil || m <= 0 {
		return 0, 0
	}
	return 1, m
}
