package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/raphaelgruber/fieldlog/internal/capture"
	"github.com/raphaelgruber/fieldlog/internal/models"
)

// formField addresses one editable value of the draft. list and row are
// empty for scalar fields.
type formField struct {
	label string
	list  capture.List
	row   models.RowID
	key   string
}

func (f formField) isRow() bool { return f.list != "" }

var sentiments = []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative}

// formFields lists the draft's fields in tab order: scalars first, then
// every row of materials, samples and follow-ups.
func formFields(d models.Draft) []formField {
	fields := []formField{
		{label: "HCP", key: "hcp_name"},
		{label: "Date/Time", key: "datetime"},
		{label: "Summary", key: "summary"},
		{label: "Sentiment", key: "sentiment"},
		{label: "Topics", key: "topics"},
		{label: "Outcome", key: "outcome"},
	}
	for i, r := range d.Materials {
		n := strconv.Itoa(i + 1)
		fields = append(fields,
			formField{label: "Material " + n, list: capture.ListMaterials, row: r.ID, key: "material_type"},
			formField{label: "  qty", list: capture.ListMaterials, row: r.ID, key: "quantity"},
			formField{label: "  notes", list: capture.ListMaterials, row: r.ID, key: "notes"},
		)
	}
	for i, r := range d.Samples {
		n := strconv.Itoa(i + 1)
		fields = append(fields,
			formField{label: "Sample " + n, list: capture.ListSamples, row: r.ID, key: "product_code"},
			formField{label: "  qty", list: capture.ListSamples, row: r.ID, key: "quantity"},
			formField{label: "  lot", list: capture.ListSamples, row: r.ID, key: "lot"},
		)
	}
	for i, r := range d.FollowUps {
		n := strconv.Itoa(i + 1)
		fields = append(fields,
			formField{label: "Follow-up " + n, list: capture.ListFollowUps, row: r.ID, key: "action_item"},
			formField{label: "  due", list: capture.ListFollowUps, row: r.ID, key: "due_date"},
			formField{label: "  owner", list: capture.ListFollowUps, row: r.ID, key: "owner"},
			formField{label: "  status", list: capture.ListFollowUps, row: r.ID, key: "status"},
		)
	}
	return fields
}

// fieldValue reads the current text of f from d.
func fieldValue(d models.Draft, f formField) string {
	switch f.list {
	case capture.ListMaterials:
		m, _ := d.Materials.Get(f.row)
		switch f.key {
		case "material_type":
			return m.MaterialType
		case "quantity":
			return strconv.Itoa(m.Quantity)
		case "notes":
			return m.Notes
		}
	case capture.ListSamples:
		s, _ := d.Samples.Get(f.row)
		switch f.key {
		case "product_code":
			return s.ProductCode
		case "quantity":
			return strconv.Itoa(s.Quantity)
		case "lot":
			return s.Lot
		}
	case capture.ListFollowUps:
		fu, _ := d.FollowUps.Get(f.row)
		switch f.key {
		case "action_item":
			return fu.ActionItem
		case "due_date":
			return fu.DueDate
		case "owner":
			return fu.Owner
		case "status":
			return fu.Status
		}
	}
	switch f.key {
	case "hcp_name":
		return d.HCPName
	case "datetime":
		return d.Datetime
	case "summary":
		return d.Summary
	case "sentiment":
		return string(d.Sentiment)
	case "topics":
		return d.Topics
	case "outcome":
		return d.Outcome
	}
	return ""
}

type searchDoneMsg struct{}

type submitDoneMsg struct {
	interaction *models.Interaction
	err         error
}

// formPanel edits the structured capture's draft. The capture is the
// source of truth; the editor only holds the focused field's text.
type formPanel struct {
	ctx     context.Context
	capture *capture.StructuredCapture
	editor  textinput.Model
	theme   Theme

	focus     int
	candidate int
}

func newFormPanel(ctx context.Context, c *capture.StructuredCapture, theme Theme) formPanel {
	ed := textinput.New()
	ed.Prompt = ""
	ed.Focus()
	p := formPanel{ctx: ctx, capture: c, editor: ed, theme: theme}
	p.load()
	return p
}

func (p *formPanel) current() formField {
	fields := formFields(p.capture.Draft())
	p.focus = max(0, min(p.focus, len(fields)-1))
	return fields[p.focus]
}

// load copies the focused field's value into the editor.
func (p *formPanel) load() {
	f := p.current()
	p.editor.SetValue(fieldValue(p.capture.Draft(), f))
	p.editor.CursorEnd()
}

func (p *formPanel) move(delta int) {
	n := len(formFields(p.capture.Draft()))
	p.focus = (p.focus + delta + n) % n
	p.candidate = 0
	p.load()
}

func (p *formPanel) focusRow(list capture.List, id models.RowID) {
	for i, f := range formFields(p.capture.Draft()) {
		if f.list == list && f.row == id {
			p.focus = i
			break
		}
	}
	p.load()
}

// apply writes the editor text into the draft.
func (p *formPanel) apply(f formField, value string) error {
	if f.isRow() {
		return p.capture.UpdateRow(f.list, f.row, f.key, value)
	}
	return p.capture.SetField(f.key, value)
}

func (p *formPanel) cycleSentiment(delta int) {
	cur := p.capture.Draft().Sentiment
	idx := 1
	for i, s := range sentiments {
		if s == cur {
			idx = i
		}
	}
	next := sentiments[(idx+delta+len(sentiments))%len(sentiments)]
	_ = p.capture.SetField("sentiment", string(next))
	p.load()
}

func (p formPanel) search(query string) tea.Cmd {
	return func() tea.Msg {
		_ = p.capture.Search(p.ctx, query)
		return searchDoneMsg{}
	}
}

func (p formPanel) submit() tea.Cmd {
	return func() tea.Msg {
		created, err := p.capture.Submit(p.ctx)
		return submitDoneMsg{interaction: created, err: err}
	}
}

func (p formPanel) update(msg tea.Msg) (formPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case submitDoneMsg:
		if msg.err == nil {
			p.focus = 0
		}
		p.load()
		return p, nil
	case searchDoneMsg:
		p.candidate = 0
		return p, nil
	case tea.KeyPressMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p formPanel) handleKey(msg tea.KeyPressMsg) (formPanel, tea.Cmd) {
	f := p.current()
	candidates := p.capture.Candidates()
	picking := f.key == "hcp_name" && len(candidates) > 0

	switch key := msg.String(); {
	case key == "ctrl+s":
		if p.capture.Submitting() {
			return p, nil
		}
		return p, p.submit()
	case key == "esc":
		p.capture.DismissStatus()
		return p, nil
	case picking && key == "down":
		p.candidate = min(p.candidate+1, len(candidates)-1)
		return p, nil
	case picking && key == "up":
		p.candidate = max(p.candidate-1, 0)
		return p, nil
	case picking && key == "enter":
		p.capture.SelectCandidate(candidates[min(p.candidate, len(candidates)-1)])
		p.load()
		return p, nil
	case key == "tab" || key == "down" || key == "enter":
		p.move(1)
		return p, nil
	case key == "shift+tab" || key == "up":
		p.move(-1)
		return p, nil
	case key == "ctrl+u" && f.key == "hcp_name":
		p.capture.ClearHCP()
		return p, nil
	case key == "ctrl+a":
		list := f.list
		if list == "" {
			list = capture.ListMaterials
		}
		id, err := p.capture.AddRow(list)
		if err == nil {
			p.focusRow(list, id)
		}
		return p, nil
	case key == "ctrl+d" && f.isRow():
		_ = p.capture.RemoveRow(f.list, f.row)
		p.load()
		return p, nil
	case f.key == "sentiment":
		switch key {
		case "left", "h":
			p.cycleSentiment(-1)
		case "right", "l", "space":
			p.cycleSentiment(1)
		}
		return p, nil
	}

	before := p.editor.Value()
	var cmd tea.Cmd
	p.editor, cmd = p.editor.Update(msg)
	after := p.editor.Value()
	if after == before {
		return p, cmd
	}
	if err := p.apply(f, after); err != nil {
		return p, cmd
	}
	if f.key == "hcp_name" {
		return p, tea.Batch(cmd, p.search(after))
	}
	return p, cmd
}

func (p formPanel) view(width int, focused bool) string {
	draft := p.capture.Draft()
	cur := p.current()

	var b strings.Builder
	b.WriteString(p.theme.titleStyle().Render("Log Interaction"))
	b.WriteString("\n\n")

	var section capture.List
	for i, f := range formFields(draft) {
		if f.list != section {
			section = f.list
			b.WriteString("\n")
		}
		active := focused && i == p.focus
		label := p.theme.labelStyle(active).Render(fmt.Sprintf("%-11s", f.label))

		value := fieldValue(draft, f)
		switch {
		case f.key == "sentiment":
			value = sentimentPicker(draft.Sentiment, active)
		case active:
			p.editor.SetWidth(max(10, width-16))
			value = p.editor.View()
		}
		if f.key == "hcp_name" && draft.HCPID != "" {
			value += p.theme.hintStyle().Render(" (linked)")
		}
		b.WriteString(label + " " + value + "\n")

		if f.key == "hcp_name" && cur.key == "hcp_name" {
			for j, c := range p.capture.Candidates() {
				line := "   " + c.Name
				if c.Organisation != "" {
					line += ", " + c.Organisation
				}
				if j == p.candidate {
					line = p.theme.labelStyle(true).Render(" > " + strings.TrimPrefix(line, "   "))
				}
				b.WriteString(line + "\n")
			}
		}
	}

	b.WriteString("\n")
	switch st := p.capture.Status(); {
	case p.capture.Submitting():
		b.WriteString(p.theme.hintStyle().Render("Submitting..."))
	case st == nil:
		b.WriteString(p.theme.hintStyle().Render("ctrl+s submit · ctrl+a add row · ctrl+d remove row"))
	case st.Level == capture.StatusError:
		b.WriteString(p.theme.errorStyle().Render(st.Message))
	default:
		b.WriteString(p.theme.successStyle().Render(st.Message))
	}
	return b.String()
}

func sentimentPicker(cur models.Sentiment, active bool) string {
	parts := make([]string, len(sentiments))
	for i, s := range sentiments {
		if s == cur {
			parts[i] = "[" + s.Title() + "]"
		} else {
			parts[i] = " " + s.Title() + " "
		}
	}
	out := strings.Join(parts, " ")
	if active {
		out += "  ←/→"
	}
	return out
}
