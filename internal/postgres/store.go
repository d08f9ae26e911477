// Package postgres is the PostgreSQL store backend.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps HCPs and interactions in Postgres. List rows live in child
// tables ordered by position.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL, pings it and bootstraps the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Close(context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WipeData deletes every HCP and interaction. Use for testing only.
func (s *Store) WipeData(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE hcps, interactions CASCADE`)
	return err
}

// wrapError maps constraint violations to store.ErrInvalid.
func wrapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("%w: %s", store.ErrInvalid, pgErr.Message)
		}
	}
	return err
}

// =============================================================================
// HCPs
// =============================================================================

const hcpColumns = `id, name, title, speciality, organisation, created_at, updated_at`

func scanHCP(row interface{ Scan(...any) error }) (models.HCP, error) {
	var h models.HCP
	err := row.Scan(&h.ID, &h.Name, &h.Title, &h.Speciality, &h.Organisation, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (s *Store) CreateHCP(ctx context.Context, input models.HCPInput) (*models.HCP, error) {
	h, err := store.NewHCP(input, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO hcps (id, name, title, speciality, organisation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + hcpColumns
	created, err := scanHCP(s.db.QueryRowContext(ctx, q, h.ID, h.Name, h.Title, h.Speciality, h.Organisation, h.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create hcp: %w", wrapError(err))
	}
	return &created, nil
}

func (s *Store) GetHCP(ctx context.Context, id string) (*models.HCP, error) {
	h, err := scanHCP(s.db.QueryRowContext(ctx, `SELECT `+hcpColumns+` FROM hcps WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hcp: %w", err)
	}
	return &h, nil
}

func (s *Store) SearchHCPs(ctx context.Context, query string, limit int) ([]models.HCP, error) {
	const q = `
		SELECT ` + hcpColumns + `
		FROM hcps
		WHERE strpos(lower(name), lower($1)) > 0
		ORDER BY seq
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, query, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search hcps: %w", err)
	}
	defer rows.Close()

	out := []models.HCP{}
	for rows.Next() {
		h, err := scanHCP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hcp: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// Interactions
// =============================================================================

func (s *Store) CreateInteraction(ctx context.Context, in models.Interaction) (*models.Interaction, error) {
	rec, err := store.PrepareInteraction(in, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	topics, err := json.Marshal(rec.Topics)
	if err != nil {
		return nil, fmt.Errorf("marshal topics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interactions
			(id, hcp_id, rep_id, mode, datetime, summary, sentiment, topics, outcome, source_raw, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		rec.ID, rec.HCPID, rec.RepID, string(rec.Mode), rec.Datetime, rec.Summary, string(rec.Sentiment),
		string(topics), rec.Outcome, rec.SourceRaw, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert interaction: %w", wrapError(err))
	}

	for i, m := range rec.Materials {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interaction_materials (id, interaction_id, position, material_type, quantity, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, rec.ID, i, m.MaterialType, m.Quantity, m.Notes); err != nil {
			return nil, fmt.Errorf("insert material: %w", wrapError(err))
		}
	}
	for i, sm := range rec.Samples {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interaction_samples (id, interaction_id, position, product_code, quantity, lot)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sm.ID, rec.ID, i, sm.ProductCode, sm.Quantity, sm.Lot); err != nil {
			return nil, fmt.Errorf("insert sample: %w", wrapError(err))
		}
	}
	for i, f := range rec.FollowUps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interaction_follow_ups (id, interaction_id, position, action_item, due_date, owner, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, rec.ID, i, f.ActionItem, f.DueDate, f.Owner, f.Status); err != nil {
			return nil, fmt.Errorf("insert follow-up: %w", wrapError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetInteraction(ctx, rec.ID)
}

func (s *Store) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	var (
		out    models.Interaction
		hcpID  sql.NullString
		mode   string
		sent   string
		topics []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hcp_id, rep_id, mode, datetime, summary, sentiment, topics, outcome, source_raw, created_at, updated_at
		FROM interactions WHERE id = $1`, id).Scan(
		&out.ID, &hcpID, &out.RepID, &mode, &out.Datetime, &out.Summary, &sent, &topics,
		&out.Outcome, &out.SourceRaw, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	if hcpID.Valid {
		out.HCPID = &hcpID.String
	}
	out.Mode = models.Mode(mode)
	out.Sentiment = models.Sentiment(sent)
	if err := json.Unmarshal(topics, &out.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}

	if out.Materials, err = s.materials(ctx, id); err != nil {
		return nil, err
	}
	if out.Samples, err = s.samples(ctx, id); err != nil {
		return nil, err
	}
	if out.FollowUps, err = s.followUps(ctx, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) materials(ctx context.Context, interactionID string) ([]models.Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, material_type, quantity, notes FROM interaction_materials
		WHERE interaction_id = $1 ORDER BY position`, interactionID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()
	out := []models.Material{}
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.MaterialType, &m.Quantity, &m.Notes); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) samples(ctx context.Context, interactionID string) ([]models.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_code, quantity, lot FROM interaction_samples
		WHERE interaction_id = $1 ORDER BY position`, interactionID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()
	out := []models.Sample{}
	for rows.Next() {
		var sm models.Sample
		if err := rows.Scan(&sm.ID, &sm.ProductCode, &sm.Quantity, &sm.Lot); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) followUps(ctx context.Context, interactionID string) ([]models.FollowUp, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_item, due_date, owner, status FROM interaction_follow_ups
		WHERE interaction_id = $1 ORDER BY position`, interactionID)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()
	out := []models.FollowUp{}
	for rows.Next() {
		var f models.FollowUp
		if err := rows.Scan(&f.ID, &f.ActionItem, &f.DueDate, &f.Owner, &f.Status); err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateInteraction applies the present scalar fields of patch.
func (s *Store) UpdateInteraction(ctx context.Context, id string, patch models.InteractionPatch) (*models.Interaction, error) {
	patch, err := store.ValidatePatch(patch)
	if err != nil {
		return nil, err
	}

	args := []any{id, time.Now().UTC()}
	sets := []string{"updated_at = $2"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if v, ok := patch.HCPID.Get(); ok {
		set("hcp_id", sql.NullString{String: v, Valid: v != ""})
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
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal topics: %w", err)
		}
		set("topics", string(b))
	}
	if v, ok := patch.Outcome.Get(); ok {
		set("outcome", v)
	}
	if v, ok := patch.SourceRaw.Get(); ok {
		set("source_raw", v)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE interactions SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, fmt.Errorf("update interaction: %w", wrapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update interaction: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetInteraction(ctx, id)
}
