// Package insight holds the passive read side of conversational capture:
// the latest extraction snapshot and its rendering.
package insight

import (
	"fmt"
	"strings"
	"sync"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

// Section titles, in display order.
const (
	SectionExtracted = "Extracted Information"
	SectionSentiment = "Sentiment Analysis"
	SectionShared    = "Shared Items"
	SectionFollowUps = "Suggested Follow-ups"
	SectionOutcome   = "Outcome"
)

// Field is one labelled line inside a section. An empty Label renders the
// value alone.
type Field struct {
	Label string
	Value string
}

// Section is a titled group of fields.
type Section struct {
	Title  string
	Fields []Field
}

// Subscriber is the read side of a notify.Bus.
type Subscriber interface {
	Subscribe(fn func(notify.Event)) (unsubscribe func())
}

// Display keeps exactly one snapshot. Every event replaces the previous
// one wholesale.
type Display struct {
	mu       sync.RWMutex
	snapshot *notify.Event
	onUpdate func()
	unsub    func()
}

// NewDisplay subscribes to bus. onUpdate, if non-nil, runs after each new
// snapshot is stored so a UI can schedule a redraw.
func NewDisplay(bus Subscriber, onUpdate func()) *Display {
	d := &Display{onUpdate: onUpdate}
	d.unsub = bus.Subscribe(d.receive)
	return d
}

func (d *Display) receive(ev notify.Event) {
	d.mu.Lock()
	d.snapshot = &ev
	d.mu.Unlock()
	if d.onUpdate != nil {
		d.onUpdate()
	}
}

// Close stops receiving events. The last snapshot stays readable.
func (d *Display) Close() {
	if d.unsub != nil {
		d.unsub()
	}
}

// Snapshot returns the latest event and whether one has arrived yet.
func (d *Display) Snapshot() (notify.Event, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return notify.Event{}, false
	}
	return *d.snapshot, true
}

// Sections returns the sections for the current snapshot, or nil before
// the first one.
func (d *Display) Sections() []Section {
	ev, ok := d.Snapshot()
	if !ok {
		return nil
	}
	return Build(ev.ExtractedData)
}

// Render returns the current snapshot as plain text, or "" before the
// first one.
func (d *Display) Render() string {
	return Render(d.Sections())
}

// Build turns an extraction into display sections. Absent fields produce
// nothing; a section with no present field is left out.
func Build(e models.Extraction) []Section {
	var out []Section

	var info []Field
	if v, ok := e.HCPName.Get(); ok {
		info = append(info, Field{"HCP", v})
	}
	if v, ok := e.Datetime.Get(); ok {
		info = append(info, Field{"Date/Time", v})
	}
	if v, ok := e.Summary.Get(); ok {
		info = append(info, Field{"Summary", v})
	}
	if v, ok := e.Topics.Get(); ok && len(v) > 0 {
		info = append(info, Field{"Topics", strings.Join(v, ", ")})
	}
	if len(info) > 0 {
		out = append(out, Section{Title: SectionExtracted, Fields: info})
	}

	if v, ok := e.Sentiment.Get(); ok {
		out = append(out, Section{Title: SectionSentiment, Fields: []Field{{Value: v.Title()}}})
	}

	var shared []Field
	for _, m := range e.Materials.OrElse(nil) {
		if line := itemLine(m.MaterialType, m.Quantity); line != "" {
			shared = append(shared, Field{"Material", line})
		}
	}
	for _, s := range e.Samples.OrElse(nil) {
		if line := itemLine(s.ProductCode, s.Quantity); line != "" {
			shared = append(shared, Field{"Sample", line})
		}
	}
	if len(shared) > 0 {
		out = append(out, Section{Title: SectionShared, Fields: shared})
	}

	var follow []Field
	for _, f := range e.SuggestedFollowUps.OrElse(nil) {
		line := f.ActionItem
		if f.Priority != "" {
			line += " (Priority: " + f.Priority + ")"
		}
		follow = append(follow, Field{Value: line})
	}
	if len(follow) > 0 {
		out = append(out, Section{Title: SectionFollowUps, Fields: follow})
	}

	if v, ok := e.Outcome.Get(); ok {
		out = append(out, Section{Title: SectionOutcome, Fields: []Field{{Value: v}}})
	}
	return out
}

// itemLine renders "name (xN)". A present zero quantity still shows.
func itemLine(name models.Optional[string], qty models.Optional[int]) string {
	n, hasName := name.Get()
	q, hasQty := qty.Get()
	switch {
	case hasName && hasQty:
		return fmt.Sprintf("%s (x%d)", n, q)
	case hasName:
		return n
	case hasQty:
		return fmt.Sprintf("(x%d)", q)
	}
	return ""
}

// Render formats sections as plain text, one blank line between sections.
func Render(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		for _, f := range s.Fields {
			b.WriteString("  ")
			if f.Label != "" {
				b.WriteString(f.Label)
				b.WriteString(": ")
			}
			b.WriteString(f.Value)
			b.WriteString("\n")
		}
	}
	return b.String()
}
