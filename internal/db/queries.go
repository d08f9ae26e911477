package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

var _ store.Store = (*Client)(nil)

// hcpRecord is an hcp row as SurrealDB returns it.
type hcpRecord struct {
	ID           surrealmodels.RecordID `json:"id"`
	Name         string                 `json:"name"`
	Title        string                 `json:"title"`
	Speciality   string                 `json:"speciality"`
	Organisation string                 `json:"organisation"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (r hcpRecord) model() (models.HCP, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return models.HCP{}, err
	}
	return models.HCP{
		ID:           id,
		Name:         r.Name,
		Title:        r.Title,
		Speciality:   r.Speciality,
		Organisation: r.Organisation,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

// interactionRecord is an interaction row as SurrealDB returns it.
type interactionRecord struct {
	ID        surrealmodels.RecordID `json:"id"`
	HCPID     *string                `json:"hcp_id"`
	RepID     string                 `json:"rep_id"`
	Mode      models.Mode            `json:"mode"`
	Datetime  string                 `json:"datetime"`
	Summary   string                 `json:"summary"`
	Sentiment models.Sentiment       `json:"sentiment"`
	Topics    []string               `json:"topics"`
	Outcome   string                 `json:"outcome"`
	SourceRaw string                 `json:"source_raw"`
	Materials []models.Material      `json:"materials"`
	Samples   []models.Sample        `json:"samples"`
	FollowUps []models.FollowUp      `json:"follow_ups"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (r interactionRecord) model() (*models.Interaction, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	out := &models.Interaction{
		ID:        id,
		HCPID:     r.HCPID,
		RepID:     r.RepID,
		Mode:      r.Mode,
		Datetime:  r.Datetime,
		Summary:   r.Summary,
		Sentiment: r.Sentiment,
		Topics:    r.Topics,
		Outcome:   r.Outcome,
		SourceRaw: r.SourceRaw,
		Materials: r.Materials,
		Samples:   r.Samples,
		FollowUps: r.FollowUps,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}
	if out.Materials == nil {
		out.Materials = []models.Material{}
	}
	if out.Samples == nil {
		out.Samples = []models.Sample{}
	}
	if out.FollowUps == nil {
		out.FollowUps = []models.FollowUp{}
	}
	return out, nil
}

// recordIDString safely extracts the string ID from a SurrealDB RecordID.
func recordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// firstResult returns the first row of the first statement, or nil if empty.
func firstResult[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

// =============================================================================
// HCP QUERIES
// =============================================================================

// CreateHCP stores a new HCP.
func (c *Client) CreateHCP(ctx context.Context, input models.HCPInput) (*models.HCP, error) {
	h, err := store.NewHCP(input, time.Now())
	if err != nil {
		return nil, err
	}

	results, err := surrealdb.Query[[]hcpRecord](ctx, c.db, `
		CREATE type::record("hcp", $id) SET
			name = $name,
			title = $title,
			speciality = $speciality,
			organisation = $organisation,
			created_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":           h.ID,
		"name":         h.Name,
		"title":        h.Title,
		"speciality":   h.Speciality,
		"organisation": h.Organisation,
	})
	if err != nil {
		return nil, fmt.Errorf("create hcp: %w", wrapQueryError(err))
	}

	rec := firstResult(results)
	if rec == nil {
		return nil, fmt.Errorf("create hcp: no record returned")
	}
	created, err := rec.model()
	if err != nil {
		return nil, fmt.Errorf("create hcp: %w", err)
	}
	return &created, nil
}

// GetHCP retrieves an HCP by ID.
func (c *Client) GetHCP(ctx context.Context, id string) (*models.HCP, error) {
	results, err := surrealdb.Query[[]hcpRecord](ctx, c.db, `
		SELECT * FROM type::record("hcp", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get hcp: %w", err)
	}

	rec := firstResult(results)
	if rec == nil {
		return nil, store.ErrNotFound
	}
	h, err := rec.model()
	if err != nil {
		return nil, fmt.Errorf("get hcp: %w", err)
	}
	return &h, nil
}

// SearchHCPs matches query case-insensitively against HCP names, oldest first.
func (c *Client) SearchHCPs(ctx context.Context, query string, limit int) ([]models.HCP, error) {
	results, err := surrealdb.Query[[]hcpRecord](ctx, c.db, `
		SELECT * FROM hcp
		WHERE string::contains(string::lowercase(name), string::lowercase($q))
		ORDER BY created_at ASC
		LIMIT $limit
	`, map[string]any{
		"q":     query,
		"limit": store.ClampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search hcps: %w", err)
	}

	out := []models.HCP{}
	if results == nil || len(*results) == 0 {
		return out, nil
	}
	for _, rec := range (*results)[0].Result {
		h, err := rec.model()
		if err != nil {
			return nil, fmt.Errorf("search hcps: %w", err)
		}
		out = append(out, h)
	}
	return out, nil
}

// =============================================================================
// INTERACTION QUERIES
// =============================================================================

func materialRows(in []models.Material) []map[string]any {
	rows := make([]map[string]any, len(in))
	for i, m := range in {
		rows[i] = map[string]any{"id": m.ID, "material_type": m.MaterialType, "quantity": m.Quantity, "notes": m.Notes}
	}
	return rows
}

func sampleRows(in []models.Sample) []map[string]any {
	rows := make([]map[string]any, len(in))
	for i, s := range in {
		rows[i] = map[string]any{"id": s.ID, "product_code": s.ProductCode, "quantity": s.Quantity, "lot": s.Lot}
	}
	return rows
}

func followUpRows(in []models.FollowUp) []map[string]any {
	rows := make([]map[string]any, len(in))
	for i, f := range in {
		rows[i] = map[string]any{
			"id":          f.ID,
			"action_item": f.ActionItem,
			"due_date":    f.DueDate,
			"owner":       f.Owner,
			"status":      f.Status,
		}
	}
	return rows
}

// CreateInteraction stores an interaction together with its rows.
func (c *Client) CreateInteraction(ctx context.Context, in models.Interaction) (*models.Interaction, error) {
	rec, err := store.PrepareInteraction(in, time.Now())
	if err != nil {
		return nil, err
	}

	results, err := surrealdb.Query[[]interactionRecord](ctx, c.db, `
		CREATE type::record("interaction", $id) SET
			hcp_id = $hcp_id,
			rep_id = $rep_id,
			mode = $mode,
			datetime = $datetime,
			summary = $summary,
			sentiment = $sentiment,
			topics = $topics,
			outcome = $outcome,
			source_raw = $source_raw,
			materials = $materials,
			samples = $samples,
			follow_ups = $follow_ups,
			created_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":         rec.ID,
		"hcp_id":     rec.HCPID,
		"rep_id":     rec.RepID,
		"mode":       string(rec.Mode),
		"datetime":   rec.Datetime,
		"summary":    rec.Summary,
		"sentiment":  string(rec.Sentiment),
		"topics":     rec.Topics,
		"outcome":    rec.Outcome,
		"source_raw": rec.SourceRaw,
		"materials":  materialRows(rec.Materials),
		"samples":    sampleRows(rec.Samples),
		"follow_ups": followUpRows(rec.FollowUps),
	})
	if err != nil {
		return nil, fmt.Errorf("create interaction: %w", wrapQueryError(err))
	}

	row := firstResult(results)
	if row == nil {
		return nil, fmt.Errorf("create interaction: no record returned")
	}
	return row.model()
}

// GetInteraction retrieves an interaction by ID.
func (c *Client) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	results, err := surrealdb.Query[[]interactionRecord](ctx, c.db, `
		SELECT * FROM type::record("interaction", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", err)
	}

	row := firstResult(results)
	if row == nil {
		return nil, store.ErrNotFound
	}
	return row.model()
}

// UpdateInteraction applies the present scalar fields of patch.
// UPDATE on a missing record returns no rows, which maps to ErrNotFound.
func (c *Client) UpdateInteraction(ctx context.Context, id string, patch models.InteractionPatch) (*models.Interaction, error) {
	patch, err := store.ValidatePatch(patch)
	if err != nil {
		return nil, err
	}

	sets := []string{"updated_at = time::now()"}
	vars := map[string]any{"id": id}
	set := func(field string, value any) {
		sets = append(sets, field+" = $"+field)
		vars[field] = value
	}
	if v, ok := patch.HCPID.Get(); ok {
		if v == "" {
			sets = append(sets, "hcp_id = NONE")
		} else {
			set("hcp_id", v)
		}
	}
	if v, ok := patch.RepID.Get(); ok {
		set("rep_id", v)
	}
	if v, ok := patch.Mode.Get(); ok {
		set("mode", string(v))
	}
	if v, ok := patch.Datetime.Get(); ok {
		set("datetime", v)
	}
	if v, ok := patch.Summary.Get(); ok {
		set("summary", v)
	}
	if v, ok := patch.Sentiment.Get(); ok {
		set("sentiment", string(v))
	}
	if v, ok := patch.Topics.Get(); ok {
		if v == nil {
			v = []string{}
		}
		set("topics", v)
	}
	if v, ok := patch.Outcome.Get(); ok {
		set("outcome", v)
	}
	if v, ok := patch.SourceRaw.Get(); ok {
		set("source_raw", v)
	}

	sql := fmt.Sprintf(`UPDATE type::record("interaction", $id) SET %s RETURN AFTER`, strings.Join(sets, ", "))
	results, err := surrealdb.Query[[]interactionRecord](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update interaction: %w", wrapQueryError(err))
	}

	row := firstResult(results)
	if row == nil {
		return nil, store.ErrNotFound
	}
	return row.model()
}
