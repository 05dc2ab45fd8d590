// Package renderwatch waits for an asynchronously populating render tree to
// stabilise before a snapshot is taken.
//
// The renderer is external and offers no completion signal, so readiness is
// judged by a bounded polling loop: the section list is sampled on a fixed
// tick and accepted once the renderer stops reporting "parsing" and the tail
// of the section list carries real text. A hard poll cutoff guarantees the
// detector always resolves, even against a renderer that never settles.
package renderwatch

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Section is one rendered section of the document, in document order.
type Section struct {
	// HTML is the section's outer markup.
	HTML string
	// Parsing reports whether the renderer is still working on this section.
	Parsing bool
	// Text is the section's rendered visible text, used by the readiness
	// heuristic to distinguish populated sections from placeholders.
	Text string
}

// Source exposes the external render tree. Implementations only read renderer
// state, never mutate it.
type Source interface {
	Sections(ctx context.Context) ([]Section, error)
}

// Config tunes the detector. Zero values pick the defaults.
type Config struct {
	// Interval between polls. Default: 100ms.
	Interval time.Duration
	// MaxPolls is the hard cutoff; whatever state exists then is accepted.
	// Default: 30.
	MaxPolls int
	// MinSections: below this count the tail sample is too small to be
	// reliable and readiness falls back to the parsing counters alone.
	// Default: 4.
	MinSections int
	// Logger for debug output.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 30
	}
	if c.MinSections <= 0 {
		c.MinSections = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Detector polls a Source until it is judged stable.
type Detector struct {
	cfg Config
}

// New creates a Detector.
func New(cfg Config) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg}
}

// Await polls src until the render tree is judged stable, the poll budget is
// spent, or ctx is cancelled. It never fails: the result is always the
// best-effort concatenation of section HTML in document order.
func (d *Detector) Await(ctx context.Context, src Source) string {
	log := d.cfg.Logger

	var last []Section
	pollsTotal := 0
	pollsParsing := 0

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for pollsTotal < d.cfg.MaxPolls {
		select {
		case <-ctx.Done():
			log.Debug("renderwatch: context cancelled, flattening current state",
				"polls", pollsTotal, "sections", len(last))
			return flatten(last)
		case <-ticker.C:
		}

		sections, err := src.Sections(ctx)
		if err != nil {
			// The renderer is external; on any failure take what we have.
			log.Warn("renderwatch: poll failed, flattening current state",
				"error", err, "polls", pollsTotal, "sections", len(last))
			return flatten(last)
		}
		last = sections
		pollsTotal++
		if anyParsing(sections) {
			pollsParsing++
		}

		if ready(sections, pollsTotal, pollsParsing, d.cfg.MinSections) {
			log.Debug("renderwatch: render stable",
				"polls", pollsTotal, "parsing_polls", pollsParsing, "sections", len(sections))
			return flatten(sections)
		}
	}

	log.Debug("renderwatch: poll budget spent, accepting current state",
		"polls", pollsTotal, "sections", len(last))
	return flatten(last)
}

// ready applies the stability heuristic: at least one poll saw the renderer
// idle, and either the document is too short to sample or the tail sample
// (5 of the last 6 sections) shows more than 2 populated sections.
func ready(sections []Section, pollsTotal, pollsParsing, minSections int) bool {
	if pollsTotal <= pollsParsing {
		return false
	}
	if len(sections) < minSections {
		return true
	}

	tail := sections
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	sample := tail
	if len(sample) == 6 {
		// The final section is often mid-render; sample the 5 before it.
		sample = sample[:5]
	}

	populated := 0
	for _, s := range sample {
		if strings.TrimSpace(s.Text) != "" {
			populated++
		}
	}
	return populated > 2
}

func anyParsing(sections []Section) bool {
	for _, s := range sections {
		if s.Parsing {
			return true
		}
	}
	return false
}

func flatten(sections []Section) string {
	var sb strings.Builder
	for _, s := range sections {
		sb.WriteString(s.HTML)
	}
	return sb.String()
}
