// Package detect watches a live transcript for scripture references and
// publishes the verses it finds, at most once per cooldown period.
package detect

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/BibleEcho/core/reference"
	"github.com/FocuswithJustin/BibleEcho/core/resolve"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
)

// DefaultCooldown is the minimum time between two published detections.
const DefaultCooldown = 5 * time.Second

// EventType tags detection events on the live feed.
const EventType = "verse_detected"

// Event is one published detection.
type Event struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	Text       string                `json:"text"`
	References []reference.Candidate `json:"references"`
	Verses     []resolve.Match       `json:"verses"`
	DetectedAt time.Time             `json:"detected_at"`
}

// Publisher receives detection events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Detector turns transcript fragments into detection events. Text without a
// structured reference is ignored; live speech is never keyword searched.
type Detector struct {
	resolver *resolve.Resolver
	pub      Publisher
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithCooldown sets the suppression window. Negative values are ignored.
func WithCooldown(d time.Duration) Option {
	return func(det *Detector) {
		if d >= 0 {
			det.cooldown = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(det *Detector) {
		det.now = now
	}
}

// New creates a Detector publishing to pub. pub may be nil.
func New(r *resolve.Resolver, pub Publisher, opts ...Option) *Detector {
	d := &Detector{
		resolver: r,
		pub:      pub,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Cooldown returns the effective suppression window.
func (d *Detector) Cooldown() time.Duration {
	return d.cooldown
}

// Detect inspects one transcript fragment. It returns the published event,
// or nil when the text holds no reference, the cooldown is still running,
// or no referenced verse exists.
func (d *Detector) Detect(ctx context.Context, text string) *Event {
	candidates := d.resolver.Parse(text)
	if len(candidates) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.last.IsZero() && now.Sub(d.last) < d.cooldown {
		logging.DebugContext(ctx, "detection suppressed",
			"references", len(candidates),
			"cooldown_remaining_ms", (d.cooldown - now.Sub(d.last)).Milliseconds())
		return nil
	}

	verses := []resolve.Match{}
	for _, c := range candidates {
		found, err := d.resolver.ResolveCandidate(ctx, c)
		if err != nil {
			continue
		}
		verses = append(verses, found...)
	}
	if len(verses) == 0 {
		return nil
	}

	d.last = now
	ev := &Event{
		ID:         uuid.NewString(),
		Type:       EventType,
		Text:       text,
		References: candidates,
		Verses:     verses,
		DetectedAt: now.UTC(),
	}
	if d.pub != nil {
		d.pub.Publish(*ev)
	}
	logging.InfoContext(ctx, "verse detected",
		"event_id", ev.ID,
		"references", len(candidates),
		"verses", len(verses))
	return ev
}

// Reset clears the cooldown.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.last = time.Time{}
	d.mu.Unlock()
}
