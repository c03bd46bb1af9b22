package captcha

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// alphabet excludes visually confusable characters (0/O, 1/I/L).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	textLength = 6
	// mathProbability is the chance a challenge is a single-digit
	// addition problem instead of a random string.
	mathProbability = 0.4
)

// Challenge is what the caller gets back: an opaque id plus the rendered
// glyph. The secret answer never leaves the service.
type Challenge struct {
	ID  string
	SVG string
}

type entry struct {
	answer   string
	issuedAt time.Time
}

// Service issues single-use captcha challenges with a fixed TTL.
type Service struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	verbose bool

	now func() time.Time
}

// NewService creates a captcha service. Entries older than ttl fail
// closed at validation time.
func NewService(ttl time.Duration, verbose bool) *Service {
	return &Service{
		entries: make(map[string]entry),
		ttl:     ttl,
		verbose: verbose,
		now:     time.Now,
	}
}

// Issue creates a new challenge and stores its secret answer.
func (s *Service) Issue() Challenge {
	var text, answer string
	if rand.Float64() < mathProbability {
		a := rand.Intn(9) + 1
		b := rand.Intn(9) + 1
		text = fmt.Sprintf("%d + %d", a, b)
		answer = fmt.Sprintf("%d", a+b)
	} else {
		var sb strings.Builder
		for i := 0; i < textLength; i++ {
			sb.WriteByte(alphabet[rand.Intn(len(alphabet))])
		}
		text = sb.String()
		answer = text
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.entries[id] = entry{answer: answer, issuedAt: s.now()}
	s.mu.Unlock()

	if s.verbose {
		log.Printf("[CAPTCHA] Issued challenge %s", id)
	}

	return Challenge{ID: id, SVG: renderSVG(text)}
}

// Validate checks a claimed answer against a previously issued
// challenge. Comparison is trimmed and case-insensitive. A successful
// validation consumes the challenge so replay fails; unknown, already
// consumed and expired ids all return false.
func (s *Service) Validate(id, claimed string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}

	if s.now().Sub(e.issuedAt) > s.ttl {
		delete(s.entries, id)
		if s.verbose {
			log.Printf("[CAPTCHA] Challenge %s expired", id)
		}
		return false
	}

	valid := strings.EqualFold(strings.TrimSpace(claimed), e.answer)
	if valid {
		delete(s.entries, id)
	}
	return valid
}

// Purge removes expired entries.
func (s *Service) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.issuedAt) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}

	if s.verbose && removed > 0 {
		log.Printf("[CAPTCHA] Purged %d expired challenges", removed)
	}
}

// StartCleanupRoutine starts a background routine that purges expired
// challenges. Expiry is still checked lazily at validation time; this
// only bounds memory.
func (s *Service) StartCleanupRoutine(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.Purge()
		}
	}()
}

// Outstanding returns the number of live challenges.
func (s *Service) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// renderSVG draws the challenge text as a distorted glyph with a small
// random rotation and two strike-through lines.
func renderSVG(text string) string {
	wobble := rand.Intn(6) - 3
	return strings.TrimSpace(fmt.Sprintf(`
<svg width="140" height="40" viewBox="0 0 140 40" xmlns="http://www.w3.org/2000/svg">
  <rect width="140" height="40" rx="8" fill="#f7fbff" />
  <line x1="10" y1="8" x2="130" y2="32" stroke="#9bb7d4" stroke-width="2" />
  <line x1="8" y1="32" x2="130" y2="12" stroke="#c2d6ee" stroke-width="2" />
  <text x="70" y="26" text-anchor="middle" font-size="18" fill="#0a3560" font-family="Courier New, monospace" transform="rotate(%d 70 20)">%s</text>
</svg>`, wobble, text))
}
