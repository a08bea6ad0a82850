// Package sqlite is the single-file persistence backend for local runs and
// tests. It mirrors the postgres schema.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_details_redeam (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	reference_number TEXT,
	hold_id TEXT,
	hold_expires_at TEXT,
	booking_id TEXT,
	booking_data TEXT,
	voucher TEXT,
	supplier_type TEXT NOT NULL DEFAULT 'redeam',
	supplier_reference TEXT,
	confirmation_number TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	deleted_at TEXT,
	created_by INTEGER,
	updated_by INTEGER,
	deleted_by INTEGER
);
CREATE INDEX IF NOT EXISTS idx_odr_hold ON order_details_redeam(hold_expires_at, hold_id);
CREATE INDEX IF NOT EXISTS idx_odr_status_created ON order_details_redeam(status, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS uq_odr_order_supplier_live
	ON order_details_redeam(order_id, supplier_type) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS order_details_universal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	galaxy_order_id TEXT,
	external_order_id TEXT,
	booking_data TEXT,
	voucher TEXT,
	confirmation_number TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	supplier_reference TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	deleted_at TEXT,
	created_by INTEGER,
	updated_by INTEGER,
	deleted_by INTEGER
);
CREATE INDEX IF NOT EXISTS idx_odu_galaxy_external ON order_details_universal(galaxy_order_id, external_order_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_odu_order_live
	ON order_details_universal(order_id) WHERE deleted_at IS NULL;
`

// fixed width so text comparison orders like time
const tsLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ orderdetails.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return internaltypes.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return internaltypes.ErrConflict
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(se.Error(), "UNIQUE") {
				return internaltypes.ErrConflict
			}
		}
	}
	return err
}

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

func tsPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func parseTS(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func int64Ptr(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func encodeData(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("booking_data: %w", err)
	}
	return string(b), nil
}

func decodeData(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("booking_data: %w", err)
	}
	return m, nil
}

type auditCols struct {
	created, updated, deleted       sql.NullString
	createdBy, updatedBy, deletedBy sql.NullInt64
}

func (a *auditCols) dest() []any {
	return []any{&a.created, &a.updated, &a.deleted, &a.createdBy, &a.updatedBy, &a.deletedBy}
}

func (a *auditCols) into(out *orderdetails.Audit) error {
	c, err := parseTS(a.created)
	if err != nil {
		return err
	}
	u, err := parseTS(a.updated)
	if err != nil {
		return err
	}
	if out.DeletedAt, err = parseTS(a.deleted); err != nil {
		return err
	}
	if c != nil {
		out.CreatedAt = *c
	}
	if u != nil {
		out.UpdatedAt = *u
	}
	out.CreatedBy = nullInt(a.createdBy)
	out.UpdatedBy = nullInt(a.updatedBy)
	out.DeletedBy = nullInt(a.deletedBy)
	return nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

const redeamCols = `id, order_id, COALESCE(reference_number,''), COALESCE(hold_id,''), hold_expires_at,
	COALESCE(booking_id,''), booking_data, COALESCE(voucher,''), supplier_type, COALESCE(supplier_reference,''),
	COALESCE(confirmation_number,''), status, created_at, updated_at, deleted_at, created_by, updated_by, deleted_by`

const universalCols = `id, order_id, COALESCE(galaxy_order_id,''), COALESCE(external_order_id,''), booking_data,
	COALESCE(voucher,''), COALESCE(confirmation_number,''), status, COALESCE(supplier_reference,''),
	created_at, updated_at, deleted_at, created_by, updated_by, deleted_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanRedeam(row scanner) (orderdetails.Redeam, error) {
	var (
		r                 orderdetails.Redeam
		supplier, status  string
		holdExpires, data sql.NullString
		audit             auditCols
	)
	dest := append([]any{&r.ID, &r.OrderID, &r.ReferenceNumber, &r.HoldID, &holdExpires,
		&r.BookingID, &data, &r.Voucher, &supplier, &r.SupplierReference,
		&r.ConfirmationNumber, &status}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return orderdetails.Redeam{}, mapErr(err)
	}
	var err error
	if r.HoldExpiresAt, err = parseTS(holdExpires); err != nil {
		return orderdetails.Redeam{}, err
	}
	if r.BookingData, err = decodeData(data); err != nil {
		return orderdetails.Redeam{}, err
	}
	if err := audit.into(&r.Audit); err != nil {
		return orderdetails.Redeam{}, err
	}
	r.SupplierType = orderdetails.SupplierType(supplier)
	r.Status = orderdetails.Status(status)
	return r, nil
}

func scanUniversal(row scanner) (orderdetails.Universal, error) {
	var (
		u      orderdetails.Universal
		status string
		data   sql.NullString
		audit  auditCols
	)
	dest := append([]any{&u.ID, &u.OrderID, &u.GalaxyOrderID, &u.ExternalOrderID, &data,
		&u.Voucher, &u.ConfirmationNumber, &status, &u.SupplierReference}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return orderdetails.Universal{}, mapErr(err)
	}
	var err error
	if u.BookingData, err = decodeData(data); err != nil {
		return orderdetails.Universal{}, err
	}
	if err := audit.into(&u.Audit); err != nil {
		return orderdetails.Universal{}, err
	}
	u.Status = orderdetails.Status(status)
	return u, nil
}

func (s *Store) CreateRedeam(ctx context.Context, d *orderdetails.Redeam) error {
	data, err := encodeData(d.BookingData)
	if err != nil {
		return err
	}
	if d.Status == "" {
		d.Status = orderdetails.StatusPending
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO order_details_redeam (order_id, reference_number, hold_id, hold_expires_at, booking_id,
			booking_data, voucher, supplier_type, supplier_reference, confirmation_number, status,
			created_at, updated_at, created_by, updated_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.OrderID, nullable(d.ReferenceNumber), nullable(d.HoldID), tsPtr(d.HoldExpiresAt), nullable(d.BookingID),
		data, nullable(d.Voucher), string(d.SupplierType), nullable(d.SupplierReference), nullable(d.ConfirmationNumber),
		string(d.Status), ts(now), ts(now), int64Ptr(d.CreatedBy), int64Ptr(d.CreatedBy),
	)
	if err != nil {
		return mapErr(err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	d.CreatedAt, d.UpdatedAt = now, now
	d.UpdatedBy = d.CreatedBy
	return nil
}

func (s *Store) GetRedeam(ctx context.Context, orderID int64, supplier orderdetails.SupplierType) (orderdetails.Redeam, error) {
	return scanRedeam(s.db.QueryRowContext(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam WHERE order_id=? AND supplier_type=? AND deleted_at IS NULL`, orderID, string(supplier)))
}

func (s *Store) GetRedeamByHold(ctx context.Context, holdID string) (orderdetails.Redeam, error) {
	return scanRedeam(s.db.QueryRowContext(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam WHERE hold_id=? AND deleted_at IS NULL ORDER BY id DESC LIMIT 1`, holdID))
}

func (s *Store) UpdateRedeam(ctx context.Context, d orderdetails.Redeam) error {
	data, err := encodeData(d.BookingData)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_details_redeam
		SET reference_number=?, hold_id=?, hold_expires_at=?, booking_id=?, booking_data=?, voucher=?,
			supplier_reference=?, confirmation_number=?, status=?, updated_at=?, updated_by=?
		WHERE id=? AND deleted_at IS NULL`,
		nullable(d.ReferenceNumber), nullable(d.HoldID), tsPtr(d.HoldExpiresAt), nullable(d.BookingID), data,
		nullable(d.Voucher), nullable(d.SupplierReference), nullable(d.ConfirmationNumber), string(d.Status),
		ts(s.now()), int64Ptr(d.UpdatedBy), d.ID,
	)
	return affected(res, err)
}

func (s *Store) DeleteRedeam(ctx context.Context, id int64, by *int64) error {
	return s.softDelete(ctx, "order_details_redeam", id, by)
}

func (s *Store) ActiveHolds(ctx context.Context, now time.Time) ([]orderdetails.Redeam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam
		WHERE deleted_at IS NULL AND hold_id IS NOT NULL AND hold_id <> ''
			AND (hold_expires_at IS NULL OR hold_expires_at > ?)
			AND status = ?
		ORDER BY hold_expires_at IS NULL, hold_expires_at, id`, ts(now), string(orderdetails.StatusPending))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []orderdetails.Redeam
	for rows.Next() {
		d, err := scanRedeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateUniversal(ctx context.Context, u *orderdetails.Universal) error {
	data, err := encodeData(u.BookingData)
	if err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = orderdetails.StatusPending
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO order_details_universal (order_id, galaxy_order_id, external_order_id, booking_data, voucher,
			confirmation_number, status, supplier_reference, created_at, updated_at, created_by, updated_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.OrderID, nullable(u.GalaxyOrderID), nullable(u.ExternalOrderID), data, nullable(u.Voucher),
		nullable(u.ConfirmationNumber), string(u.Status), nullable(u.SupplierReference), ts(now), ts(now),
		int64Ptr(u.CreatedBy), int64Ptr(u.CreatedBy),
	)
	if err != nil {
		return mapErr(err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = now, now
	u.UpdatedBy = u.CreatedBy
	return nil
}

func (s *Store) GetUniversal(ctx context.Context, orderID int64) (orderdetails.Universal, error) {
	return scanUniversal(s.db.QueryRowContext(ctx, `SELECT `+universalCols+`
		FROM order_details_universal WHERE order_id=? AND deleted_at IS NULL`, orderID))
}

func (s *Store) GetUniversalByExternal(ctx context.Context, externalOrderID string) (orderdetails.Universal, error) {
	return scanUniversal(s.db.QueryRowContext(ctx, `SELECT `+universalCols+`
		FROM order_details_universal WHERE external_order_id=? AND deleted_at IS NULL ORDER BY id DESC LIMIT 1`, externalOrderID))
}

func (s *Store) UpdateUniversal(ctx context.Context, u orderdetails.Universal) error {
	data, err := encodeData(u.BookingData)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_details_universal
		SET galaxy_order_id=?, external_order_id=?, booking_data=?, voucher=?, confirmation_number=?,
			status=?, supplier_reference=?, updated_at=?, updated_by=?
		WHERE id=? AND deleted_at IS NULL`,
		nullable(u.GalaxyOrderID), nullable(u.ExternalOrderID), data, nullable(u.Voucher),
		nullable(u.ConfirmationNumber), string(u.Status), nullable(u.SupplierReference), ts(s.now()),
		int64Ptr(u.UpdatedBy), u.ID,
	)
	return affected(res, err)
}

func (s *Store) DeleteUniversal(ctx context.Context, id int64, by *int64) error {
	return s.softDelete(ctx, "order_details_universal", id, by)
}

func (s *Store) softDelete(ctx context.Context, table string, id int64, by *int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET deleted_at=?, deleted_by=? WHERE id=? AND deleted_at IS NULL`,
		ts(s.now()), int64Ptr(by), id)
	return affected(res, err)
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}
