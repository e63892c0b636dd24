package pocket

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Option configures an Engine or a Projector.
type Option func(*settings)

type settings struct {
	logger *log.Logger
	loc    *time.Location
	now    func() time.Time
	newID  func() string
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: log.Default(),
		loc:    time.Local,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger used to report skipped records and progress.
func WithLogger(l *log.Logger) Option { return func(s *settings) { s.logger = l } }

// WithLocation sets the location where calendar days are computed: occurrence
// days, duplicate detection and summaries. Defaults to time.Local.
func WithLocation(loc *time.Location) Option { return func(s *settings) { s.loc = loc } }

// WithClock sets the source of the current instant. Defaults to time.Now.
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// WithIDGenerator sets the generator of temporary entry ids. Defaults to random UUIDs.
func WithIDGenerator(f func() string) Option { return func(s *settings) { s.newID = f } }
