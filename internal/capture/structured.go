package capture

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// minSearchLen is the query length a search must exceed before the directory is asked.
const minSearchLen = 2

// List names one of the draft's repeated sub-record lists.
type List string

const (
	ListMaterials List = "materials"
	ListSamples   List = "samples"
	ListFollowUps List = "follow_ups"
)

// StructuredCapture owns a draft interaction edited field by field.
// All methods are safe for concurrent use; the lock is never held across
// a directory or sink call.
type StructuredCapture struct {
	dir    Directory
	sink   InteractionSink
	repID  string
	opts   options
	logger *slog.Logger

	mu         sync.Mutex
	draft      models.Draft
	query      string
	candidates []models.HCP
	searchSeq  int
	submitting bool
	status     *Status
}

// NewStructuredCapture returns a capture with a blank draft.
func NewStructuredCapture(dir Directory, sink InteractionSink, repID string, opts ...Option) *StructuredCapture {
	o := buildOptions(opts)
	return &StructuredCapture{
		dir:    dir,
		sink:   sink,
		repID:  repID,
		opts:   o,
		logger: o.logger,
		draft:  models.NewDraft(repID, o.now()),
	}
}

// Draft returns the current draft. Row lists are never mutated in place,
// so the returned value stays stable after further edits.
func (c *StructuredCapture) Draft() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Query returns the current HCP search text.
func (c *StructuredCapture) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Candidates returns the HCPs matching the last search.
func (c *StructuredCapture) Candidates() []models.HCP {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.HCP(nil), c.candidates...)
}

// Status returns the last status message, or nil.
func (c *StructuredCapture) Status() *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil
	}
	s := *c.status
	return &s
}

// DismissStatus clears the status message.
func (c *StructuredCapture) DismissStatus() {
	c.mu.Lock()
	c.status = nil
	c.mu.Unlock()
}

// Submitting reports whether a submission is in flight.
func (c *StructuredCapture) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// SetField sets a scalar draft field. Setting hcp_name also becomes the
// search query; it does not clear an already selected hcp_id.
func (c *StructuredCapture) SetField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch field {
	case "hcp_name":
		c.draft.HCPName = value
		c.query = value
	case "datetime":
		c.draft.Datetime = value
	case "summary":
		c.draft.Summary = value
	case "sentiment":
		s, ok := models.ParseSentiment(value)
		if !ok {
			return fmt.Errorf("invalid sentiment %q", value)
		}
		c.draft.Sentiment = s
	case "topics":
		c.draft.Topics = value
		c.draft.TopicList = nil
	case "outcome":
		c.draft.Outcome = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// SetTopics replaces the topics with an already split list. Entries keep
// any commas they contain. Editing the "topics" field afterwards switches
// back to comma-separated text.
func (c *StructuredCapture) SetTopics(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.TopicList = slices.Clone(topics)
	c.draft.Topics = strings.Join(topics, ", ")
}

// Search looks up HCPs matching query. Queries of two characters or fewer
// clear the candidates without asking the directory. Results of a search
// superseded by a newer one are discarded.
func (c *StructuredCapture) Search(ctx context.Context, query string) error {
	c.mu.Lock()
	c.query = query
	c.searchSeq++
	seq := c.searchSeq
	if utf8.RuneCountInString(query) <= minSearchLen {
		c.candidates = nil
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	hcps, err := c.dir.SearchHCPs(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq {
		return nil
	}
	if err != nil {
		c.logger.Warn("hcp search failed", "query", query, "error", err)
		c.status = &Status{Level: StatusError, Message: "HCP search failed: " + describeError(err)}
		return fmt.Errorf("search hcps: %w", err)
	}
	c.candidates = hcps
	return nil
}

// SelectCandidate resolves the draft's HCP to hcp and clears the search.
func (c *StructuredCapture) SelectCandidate(hcp models.HCP) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.HCPID = hcp.ID
	c.draft.HCPName = hcp.Name
	c.candidates = nil
	c.query = ""
	c.searchSeq++
}

// ClearHCP drops the resolved HCP so the next submission creates one by name.
func (c *StructuredCapture) ClearHCP() {
	c.mu.Lock()
	c.draft.HCPID = ""
	c.mu.Unlock()
}

// AddRow appends a blank row to list and returns its id.
func (c *StructuredCapture) AddRow(list List) (models.RowID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch list {
	case ListMaterials:
		c.draft.Materials = c.draft.Materials.Add(models.Material{})
		return c.draft.Materials[len(c.draft.Materials)-1].ID, nil
	case ListSamples:
		c.draft.Samples = c.draft.Samples.Add(models.Sample{})
		return c.draft.Samples[len(c.draft.Samples)-1].ID, nil
	case ListFollowUps:
		c.draft.FollowUps = c.draft.FollowUps.Add(models.FollowUp{Status: models.DefaultFollowUpStatus})
		return c.draft.FollowUps[len(c.draft.FollowUps)-1].ID, nil
	default:
		return "", fmt.Errorf("unknown list %q", list)
	}
}

// UpdateRow replaces one field of one row, leaving every other row untouched.
func (c *StructuredCapture) UpdateRow(list List, id models.RowID, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	switch list {
	case ListMaterials:
		c.draft.Materials, err = c.draft.Materials.Update(id, func(m models.Material) (models.Material, error) {
			return m.With(field, value)
		})
	case ListSamples:
		c.draft.Samples, err = c.draft.Samples.Update(id, func(s models.Sample) (models.Sample, error) {
			return s.With(field, value)
		})
	case ListFollowUps:
		c.draft.FollowUps, err = c.draft.FollowUps.Update(id, func(f models.FollowUp) (models.FollowUp, error) {
			return f.With(field, value)
		})
	default:
		return fmt.Errorf("unknown list %q", list)
	}
	return err
}

// RemoveRow deletes a row. The last remaining row of a list cannot be removed.
func (c *StructuredCapture) RemoveRow(list List, id models.RowID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch list {
	case ListMaterials:
		c.draft.Materials = c.draft.Materials.Remove(id)
	case ListSamples:
		c.draft.Samples = c.draft.Samples.Remove(id)
	case ListFollowUps:
		c.draft.FollowUps = c.draft.FollowUps.Remove(id)
	default:
		return fmt.Errorf("unknown list %q", list)
	}
	return nil
}

// Submit persists the draft in two phases. An unresolved HCP with a name
// is created first; the normalized interaction is submitted second. On
// success the draft resets to blank. On failure the draft is left exactly
// as it was and the error is surfaced through Status.
func (c *StructuredCapture) Submit(ctx context.Context) (*models.Interaction, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.submitting = true
	c.status = nil
	draft := c.draft
	c.mu.Unlock()

	created, err := c.submit(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.logger.Warn("submit interaction failed", "hcp_name", draft.HCPName, "error", err)
		c.status = &Status{Level: StatusError, Message: "Error: " + describeError(err)}
		return nil, err
	}

	c.logger.Info("interaction logged", "id", created.ID, "hcp_id", created.HCPRef())
	c.draft = models.NewDraft(c.repID, c.opts.now())
	c.query = ""
	c.candidates = nil
	c.status = &Status{Level: StatusSuccess, Message: "Interaction logged successfully!"}
	return created, nil
}

func (c *StructuredCapture) submit(ctx context.Context, draft models.Draft) (*models.Interaction, error) {
	if draft.HCPID == "" && strings.TrimSpace(draft.HCPName) != "" {
		hcp, err := c.dir.CreateHCP(ctx, models.HCPInput{Name: draft.HCPName})
		if err != nil {
			return nil, fmt.Errorf("create hcp: %w", err)
		}
		c.logger.Debug("created hcp for draft", "id", hcp.ID, "name", hcp.Name)
		draft.HCPID = hcp.ID
	}

	created, err := c.sink.CreateInteraction(ctx, models.Normalize(draft))
	if err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	return created, nil
}
