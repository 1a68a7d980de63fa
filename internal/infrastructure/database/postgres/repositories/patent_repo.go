// Package repositories provides the PostgreSQL-backed implementation of the
// patent repository.
package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const uniqueViolation = "23505"

const patentColumns = `id, patent_number, title, abstract, assignee,
	classification, filing_date, claims_text, created_at, updated_at`

const claimColumns = `patent_id, claim_number, text, kind, is_independent,
	parent_number, key_elements`

// PatentRepository implements patent.Repository on pgx.
type PatentRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var _ patent.Repository = (*PatentRepository)(nil)

// NewPatentRepository wraps a connected pool.
func NewPatentRepository(pool *pgxpool.Pool, log logging.Logger) *PatentRepository {
	return &PatentRepository{pool: pool, logger: log.Named("patent_repo")}
}

// Create stores the patent and its claim set in one transaction.
func (r *PatentRepository) Create(ctx context.Context, p *patent.Patent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "beginning transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO patents (`+patentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.PatentNumber, p.Title, p.Abstract, p.Assignee,
		p.Classification, nullableTime(p.FilingDate), p.ClaimsText,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.New(errors.ErrCodePatentAlreadyExists,
				fmt.Sprintf("patent %s already exists", p.PatentNumber))
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting patent")
	}

	if err := r.insertClaims(ctx, tx, p.ID, p.Claims); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing patent")
	}
	return nil
}

// GetByID loads a patent and its claims.
func (r *PatentRepository) GetByID(ctx context.Context, id uuid.UUID) (*patent.Patent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patentColumns+` FROM patents WHERE id = $1`, id)
	p, err := scanPatent(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodePatentNotFound,
				fmt.Sprintf("patent %s not found", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading patent")
	}
	if p.Claims, err = r.GetClaims(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByIDs loads several patents, preserving the order of ids. Missing ids
// are skipped. Claims are not loaded; search ranking does not need them.
func (r *PatentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*patent.Patent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+patentColumns+` FROM patents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading patents")
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*patent.Patent, len(ids))
	for rows.Next() {
		p, err := scanPatent(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning patent")
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading patents")
	}

	out := make([]*patent.Patent, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetByNumber loads a patent by its publication number.
func (r *PatentRepository) GetByNumber(ctx context.Context, number string) (*patent.Patent, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		// Unnumbered patents are reachable by id only; an empty lookup
		// would match every one of them.
		return nil, errors.InvalidParam("patent number must not be empty")
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+patentColumns+` FROM patents WHERE patent_number = $1`, number)
	p, err := scanPatent(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodePatentNotFound,
				fmt.Sprintf("patent %s not found", number))
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading patent")
	}
	if p.Claims, err = r.GetClaims(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns patents matching the filter, newest first.
func (r *PatentRepository) List(ctx context.Context, filter patent.ListFilter) ([]*patent.Patent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + patentColumns + ` FROM patents`
	args := []any{}
	if filter.Assignee != "" {
		query += ` WHERE assignee = $1`
		args = append(args, filter.Assignee)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing patents")
	}
	defer rows.Close()

	var out []*patent.Patent
	for rows.Next() {
		p, err := scanPatent(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning patent")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading patents")
	}
	return out, nil
}

// SaveClaims replaces a patent's stored claim set.
func (r *PatentRepository) SaveClaims(ctx context.Context, patentID uuid.UUID, claims patent.ClaimSet) error {
	if err := claims.Validate(); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "beginning transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM patent_claims WHERE patent_id = $1`, patentID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clearing claims")
	}
	if err := r.insertClaims(ctx, tx, patentID, claims); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE patents SET updated_at = now() WHERE id = $1`, patentID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "touching patent")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing claims")
	}
	return nil
}

// GetClaims loads a patent's claim set in number order.
func (r *PatentRepository) GetClaims(ctx context.Context, patentID uuid.UUID) (patent.ClaimSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM patent_claims
		WHERE patent_id = $1 ORDER BY claim_number`, patentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading claims")
	}
	defer rows.Close()

	var claims patent.ClaimSet
	for rows.Next() {
		var c patent.Claim
		var kind string
		var parent *int
		if err := rows.Scan(&c.PatentID, &c.Number, &c.Text, &kind,
			&c.IsIndependent, &parent, &c.KeyElements); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning claim")
		}
		c.Kind = claimKindFrom(kind)
		if parent != nil {
			c.ParentNumber = *parent
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading claims")
	}
	return claims, nil
}

// Count returns the number of stored patents.
func (r *PatentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM patents`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting patents")
	}
	return n, nil
}

func (r *PatentRepository) insertClaims(ctx context.Context, tx pgx.Tx, patentID uuid.UUID, claims patent.ClaimSet) error {
	for _, c := range claims {
		var parent *int
		if !c.IsIndependent {
			n := c.ParentNumber
			parent = &n
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO patent_claims (`+claimColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			patentID, c.Number, c.Text, c.Kind.String(), c.IsIndependent,
			parent, c.KeyElements)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError,
				fmt.Sprintf("inserting claim %d", c.Number))
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatent(row rowScanner) (*patent.Patent, error) {
	var p patent.Patent
	var filingDate *time.Time
	err := row.Scan(&p.ID, &p.PatentNumber, &p.Title, &p.Abstract, &p.Assignee,
		&p.Classification, &filingDate, &p.ClaimsText, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if filingDate != nil {
		p.FilingDate = *filingDate
	}
	return &p, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func claimKindFrom(s string) patent.ClaimKind {
	switch s {
	case "apparatus":
		return patent.KindApparatus
	case "method":
		return patent.KindMethod
	case "system":
		return patent.KindSystem
	default:
		return patent.KindUnspecified
	}
}
