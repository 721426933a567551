// Package window turns ?days and ?offset query parameters into time bounds.
package window

import (
	"net/url"
	"slices"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// Window is a half-open range [Since, Until). A zero Until means "up to now".
type Window struct {
	Days   int
	Offset int
	Since  time.Time
	Until  time.Time
}

// Parser validates request parameters against an allow-list.
type Parser struct {
	allowed     []int
	defaultDays int
	maxOffset   int
	now         func() time.Time
}

// NewParser creates a Parser. Defaults: days in {7, 30, 90}, default 30, offset capped at 52.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		allowed:     []int{7, 30, 90},
		defaultDays: 30,
		maxOffset:   52,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Days returns the validated ?days value.
func (p *Parser) Days(q url.Values) int {
	d, err := strconv.Atoi(q.Get("days"))
	if err != nil || !slices.Contains(p.allowed, d) {
		return p.defaultDays
	}
	return d
}

// Offset returns the validated ?offset value; anything invalid is 0.
func (p *Parser) Offset(q url.Values) int {
	o, err := strconv.Atoi(q.Get("offset"))
	if err != nil || o < 0 {
		return 0
	}
	return min(o, p.maxOffset)
}

// Parse reads ?days only.
func (p *Parser) Parse(q url.Values) Window {
	return p.Build(p.Days(q), 0)
}

// ParseWithOffset reads ?days and ?offset.
func (p *Parser) ParseWithOffset(q url.Values) Window {
	return p.Build(p.Days(q), p.Offset(q))
}

// Weekly reads ?days and widens the window to whole weeks.
func (p *Parser) Weekly(q url.Values) Window {
	days := p.Days(q)
	w := p.Build(WeeksFor(days)*7, 0)
	w.Days = days
	return w
}

// Build computes bounds for a days/offset pair relative to now.
func (p *Parser) Build(days, offset int) Window {
	now := p.now().UTC()
	w := Window{
		Days:   days,
		Offset: offset,
		Since:  now.Add(-time.Duration((offset+1)*days) * day),
	}
	if offset > 0 {
		w.Until = now.Add(-time.Duration(offset*days) * day)
	}
	return w
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Since) {
		return false
	}
	return w.Until.IsZero() || t.Before(w.Until)
}

// WeeksFor converts a day count into whole weeks, rounding up.
func WeeksFor(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + 6) / 7
}
