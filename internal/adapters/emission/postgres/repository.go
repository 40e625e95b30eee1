package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"agourmet/ms_dte_bridge/internal/core/dte"
	"agourmet/ms_dte_bridge/internal/core/emission"
)

// querier is the subset of *pgxpool.Pool the repository uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository implements emission.Store on the dte_emission table.
type Repository struct {
	db  querier
	log *slog.Logger
	now func() time.Time
}

// NewRepository creates a new PostgreSQL emission repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{db: pool, log: log, now: time.Now}
}

var _ emission.Store = (*Repository)(nil)

// Get returns the record for order and namespace, or nil if none exists.
func (r *Repository) Get(ctx context.Context, orderID, namespace string) (*emission.Record, error) {
	query := `
		SELECT order_id, folio, kind, issue_date, pdf_url, xml_url, emitted_at
		FROM dte_emission
		WHERE order_id = $1 AND namespace = $2
	`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, orderID, namespace))
	if err != nil {
		return nil, fmt.Errorf("query emission: %w", err)
	}
	return rec, nil
}

// Put inserts the record. The first record for an order and namespace wins;
// later writes are ignored.
func (r *Repository) Put(ctx context.Context, orderID, namespace string, rec emission.Record) error {
	query := `
		INSERT INTO dte_emission (
			id, order_id, namespace, folio, kind, issue_date, pdf_url, xml_url, emitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id, namespace) DO NOTHING
	`

	emittedAt := rec.EmittedAt
	if emittedAt.IsZero() {
		emittedAt = r.now().UTC()
	}

	tag, err := r.db.Exec(ctx, query,
		uuid.New(),
		orderID,
		namespace,
		rec.Folio,
		int(rec.Kind),
		rec.IssueDate,
		rec.PDFURL,
		rec.XMLURL,
		emittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert emission: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.log.Warn("Emission already recorded, keeping first record",
			"order_id", orderID,
			"namespace", namespace,
			"folio", rec.Folio,
		)
	}

	return nil
}

// scanRecord reads one dte_emission row. A missing row is not an error.
func scanRecord(row pgx.Row) (*emission.Record, error) {
	var rec emission.Record
	var kind int
	err := row.Scan(
		&rec.OrderID,
		&rec.Folio,
		&kind,
		&rec.IssueDate,
		&rec.PDFURL,
		&rec.XMLURL,
		&rec.EmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rec.Kind = dte.Kind(kind)
	if !rec.Kind.Valid() {
		return nil, fmt.Errorf("unknown document kind %d", kind)
	}
	return &rec, nil
}
