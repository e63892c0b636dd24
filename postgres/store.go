package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/pocket"
	"github.com/shopspring/decimal"
)

// Store is a pocket.RemoteStore on the entries table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const columns = `id, COALESCE(client_ref, ''), owner_id, name, amount::text, kind, category, icon, occurred_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (pocket.Entry, error) {
	var e pocket.Entry
	var amount, kind string
	if err := row.Scan(&e.ID, &e.Ref, &e.OwnerID, &e.Name, &amount, &kind, &e.Category, &e.Icon, &e.Timestamp); err != nil {
		return pocket.Entry{}, err
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return pocket.Entry{}, fmt.Errorf("entry %q: invalid amount %q: %w", e.ID, amount, err)
	}
	e.Amount = pocket.A(v)
	if e.Kind, err = pocket.ParseKind(kind); err != nil {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", e.ID, err)
	}
	e.State = pocket.Settled
	return e, nil
}

// Create inserts e and returns its id. A second creation with the same Ref
// returns the id of the first one.
func (s *Store) Create(ctx context.Context, e pocket.Entry) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (client_ref, owner_id, name, amount, kind, category, icon, occurred_at)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_ref) DO UPDATE SET client_ref = EXCLUDED.client_ref
		RETURNING id`,
		e.Ref, e.OwnerID, e.Name, e.Amount.String(), e.Kind.String(), e.Category, e.Icon, e.Timestamp,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("cannot create entry %q: %w", e.Name, classify(err))
	}
	return id, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]pocket.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM entries WHERE owner_id = $1 ORDER BY occurred_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("cannot list entries of %q: %w", owner, classify(err))
	}
	defer rows.Close()

	var list []pocket.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot list entries of %q: %w", owner, classify(err))
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list entries of %q: %w", owner, classify(err))
	}
	return list, nil
}

func (s *Store) Get(ctx context.Context, id string) (pocket.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM entries WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", id, pocket.ErrNotFound)
	}
	if err != nil {
		return pocket.Entry{}, fmt.Errorf("cannot get entry %q: %w", id, classify(err))
	}
	return e, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("cannot check entry %q: %w", id, classify(err))
	}
	return exists, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cannot delete entry %q: %w", id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cannot delete entry %q: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("entry %q: %w", id, pocket.ErrNotFound)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return classify(s.db.PingContext(ctx)) }
