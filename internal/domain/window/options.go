package window

import "time"

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithAllowedDays sets the ?days allow-list. Empty lists are ignored.
func WithAllowedDays(days []int) Option {
	return func(p *Parser) {
		if len(days) > 0 {
			p.allowed = append([]int(nil), days...)
		}
	}
}

// WithDefaultDays sets the fallback for missing or rejected ?days.
func WithDefaultDays(days int) Option {
	return func(p *Parser) {
		if days > 0 {
			p.defaultDays = days
		}
	}
}

// WithMaxOffset caps ?offset.
func WithMaxOffset(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.maxOffset = n
		}
	}
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}
