package middleware

import (
	"math"
	"sync"
	"time"
)

// Login throttle settings
const (
	MaxLoginAttempts = 5
	LoginLockout     = 15 * time.Minute
)

// LoginLimiter is a best-effort, process-local throttle on admin login
// attempts, keyed by email. It is advisory only: state is not shared across
// instances and resets on restart.
type LoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter creates a limiter with the default attempt budget
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: MaxLoginAttempts,
		window:      LoginLockout,
		now:         time.Now,
	}
}

// Check reports whether another attempt is allowed for this email. When the
// budget is exhausted it returns the minutes remaining until the oldest
// attempt ages out.
func (l *LoginLimiter) Check(email string) (allowed bool, minutesRemaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.recentLocked(email, now)

	if len(recent) >= l.maxAttempts {
		remaining := l.window - now.Sub(recent[0])
		return false, int(math.Ceil(remaining.Minutes()))
	}

	l.attempts[email] = recent
	return true, 0
}

// Record notes a failed attempt for this email
func (l *LoginLimiter) Record(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[email] = append(l.recentLocked(email, l.now()), l.now())
}

// Clear forgets all attempts for this email (called on successful login)
func (l *LoginLimiter) Clear(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, email)
}

// recentLocked drops attempts older than the window. Caller must hold mu.
func (l *LoginLimiter) recentLocked(email string, now time.Time) []time.Time {
	var recent []time.Time
	for _, t := range l.attempts[email] {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}
	return recent
}
