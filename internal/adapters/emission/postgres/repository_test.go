package postgres

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agourmet/ms_dte_bridge/internal/core/dte"
	"agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/testutil"
)

var emittedAt = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error

	queryArgs []any
	execArgs  []any
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.queryArgs = args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.execArgs = args
	return f.tag, f.execErr
}

func newTestRepository(db *fakeDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log, now: func() time.Time { return emittedAt }}
}

func storedRow(kind int) fakeRow {
	return fakeRow{values: []any{"5001", "1234", kind, "2024-03-01", "https://x/1234.pdf", "https://x/1234.xml", emittedAt}}
}

func TestRepository_ImplementsStore(t *testing.T) {
	var _ emission.Store = (*Repository)(nil)
}

func TestRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &fakeDB{row: storedRow(33)}

		rec, err := newTestRepository(db, testutil.NewNullLogger()).Get(context.Background(), "5001", "lioren_dte")
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, emission.Record{
			OrderID:   "5001",
			Folio:     "1234",
			Kind:      dte.Invoice,
			IssueDate: "2024-03-01",
			PDFURL:    "https://x/1234.pdf",
			XMLURL:    "https://x/1234.xml",
			EmittedAt: emittedAt,
		}, *rec)
		assert.Equal(t, []any{"5001", "lioren_dte"}, db.queryArgs)
	})

	t.Run("no rows is not an error", func(t *testing.T) {
		db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

		rec, err := newTestRepository(db, testutil.NewNullLogger()).Get(context.Background(), "5001", "lioren_dte")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("query failure", func(t *testing.T) {
		db := &fakeDB{row: fakeRow{err: errors.New("connection reset")}}

		rec, err := newTestRepository(db, testutil.NewNullLogger()).Get(context.Background(), "5001", "lioren_dte")
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("unknown kind", func(t *testing.T) {
		db := &fakeDB{row: storedRow(52)}

		_, err := newTestRepository(db, testutil.NewNullLogger()).Get(context.Background(), "5001", "lioren_dte")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "52")
	})
}

func TestRepository_Put(t *testing.T) {
	t.Run("inserts with defaulted timestamp", func(t *testing.T) {
		var buf bytes.Buffer
		db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
		repo := newTestRepository(db, slog.New(slog.NewJSONHandler(&buf, nil)))

		err := repo.Put(context.Background(), "5001", "lioren_dte", emission.Record{Folio: "1234", Kind: dte.Receipt})
		require.NoError(t, err)

		require.Len(t, db.execArgs, 9)
		assert.Equal(t, "5001", db.execArgs[1])
		assert.Equal(t, "lioren_dte", db.execArgs[2])
		assert.Equal(t, "1234", db.execArgs[3])
		assert.Equal(t, 39, db.execArgs[4])
		assert.Equal(t, emittedAt, db.execArgs[8])
		assert.Empty(t, buf.String())
	})

	t.Run("conflict keeps first record", func(t *testing.T) {
		var buf bytes.Buffer
		db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 0")}
		repo := newTestRepository(db, slog.New(slog.NewJSONHandler(&buf, nil)))

		err := repo.Put(context.Background(), "5001", "lioren_dte", emission.Record{Folio: "9999", Kind: dte.Receipt})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "keeping first record")
		assert.Contains(t, buf.String(), `"folio":"9999"`)
	})

	t.Run("exec failure", func(t *testing.T) {
		db := &fakeDB{execErr: errors.New("deadlock detected")}

		err := newTestRepository(db, testutil.NewNullLogger()).Put(context.Background(), "5001", "lioren_dte", emission.Record{Folio: "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert emission")
	})
}
