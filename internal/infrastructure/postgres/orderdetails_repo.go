package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

type OrderDetailsRepo struct {
	q   Querier
	now func() time.Time
}

var _ orderdetails.Repository = (*OrderDetailsRepo)(nil)

func NewOrderDetailsRepo(q Querier) *OrderDetailsRepo {
	return &OrderDetailsRepo{q: q, now: func() time.Time { return time.Now().UTC() }}
}

const redeamCols = `id, order_id, COALESCE(reference_number,''), COALESCE(hold_id,''), hold_expires_at,
	COALESCE(booking_id,''), booking_data, COALESCE(voucher,''), supplier_type, COALESCE(supplier_reference,''),
	COALESCE(confirmation_number,''), status, created_at, updated_at, deleted_at, created_by, updated_by, deleted_by`

const universalCols = `id, order_id, COALESCE(galaxy_order_id,''), COALESCE(external_order_id,''), booking_data,
	COALESCE(voucher,''), COALESCE(confirmation_number,''), status, COALESCE(supplier_reference,''),
	created_at, updated_at, deleted_at, created_by, updated_by, deleted_by`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodeData(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("booking_data: %w", err)
	}
	return b, nil
}

func decodeData(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("booking_data: %w", err)
	}
	return m, nil
}

func scanRedeam(row pgx.Row) (orderdetails.Redeam, error) {
	var (
		r    orderdetails.Redeam
		data []byte
	)
	err := row.Scan(&r.ID, &r.OrderID, &r.ReferenceNumber, &r.HoldID, &r.HoldExpiresAt,
		&r.BookingID, &data, &r.Voucher, &r.SupplierType, &r.SupplierReference,
		&r.ConfirmationNumber, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt,
		&r.CreatedBy, &r.UpdatedBy, &r.DeletedBy)
	if err != nil {
		return orderdetails.Redeam{}, mapErr(err)
	}
	if r.BookingData, err = decodeData(data); err != nil {
		return orderdetails.Redeam{}, err
	}
	return r, nil
}

func scanUniversal(row pgx.Row) (orderdetails.Universal, error) {
	var (
		u    orderdetails.Universal
		data []byte
	)
	err := row.Scan(&u.ID, &u.OrderID, &u.GalaxyOrderID, &u.ExternalOrderID, &data,
		&u.Voucher, &u.ConfirmationNumber, &u.Status, &u.SupplierReference,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt, &u.CreatedBy, &u.UpdatedBy, &u.DeletedBy)
	if err != nil {
		return orderdetails.Universal{}, mapErr(err)
	}
	if u.BookingData, err = decodeData(data); err != nil {
		return orderdetails.Universal{}, err
	}
	return u, nil
}

func (r *OrderDetailsRepo) CreateRedeam(ctx context.Context, d *orderdetails.Redeam) error {
	data, err := encodeData(d.BookingData)
	if err != nil {
		return err
	}
	now := r.now()
	if d.Status == "" {
		d.Status = orderdetails.StatusPending
	}
	err = r.q.QueryRow(ctx, `
		INSERT INTO order_details_redeam (order_id, reference_number, hold_id, hold_expires_at, booking_id,
			booking_data, voucher, supplier_type, supplier_reference, confirmation_number, status,
			created_at, updated_at, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12,$13,$13)
		RETURNING id`,
		d.OrderID, nullable(d.ReferenceNumber), nullable(d.HoldID), d.HoldExpiresAt, nullable(d.BookingID),
		data, nullable(d.Voucher), string(d.SupplierType), nullable(d.SupplierReference), nullable(d.ConfirmationNumber),
		string(d.Status), now, d.CreatedBy,
	).Scan(&d.ID)
	if err != nil {
		return mapErr(err)
	}
	d.CreatedAt, d.UpdatedAt = now, now
	d.UpdatedBy = d.CreatedBy
	return nil
}

func (r *OrderDetailsRepo) GetRedeam(ctx context.Context, orderID int64, supplier orderdetails.SupplierType) (orderdetails.Redeam, error) {
	return scanRedeam(r.q.QueryRow(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam WHERE order_id=$1 AND supplier_type=$2 AND deleted_at IS NULL`, orderID, string(supplier)))
}

func (r *OrderDetailsRepo) GetRedeamByHold(ctx context.Context, holdID string) (orderdetails.Redeam, error) {
	return scanRedeam(r.q.QueryRow(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam WHERE hold_id=$1 AND deleted_at IS NULL
		ORDER BY id DESC LIMIT 1`, holdID))
}

func (r *OrderDetailsRepo) UpdateRedeam(ctx context.Context, d orderdetails.Redeam) error {
	data, err := encodeData(d.BookingData)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE order_details_redeam
		SET reference_number=$2, hold_id=$3, hold_expires_at=$4, booking_id=$5, booking_data=$6, voucher=$7,
			supplier_reference=$8, confirmation_number=$9, status=$10, updated_at=$11, updated_by=$12
		WHERE id=$1 AND deleted_at IS NULL`,
		d.ID, nullable(d.ReferenceNumber), nullable(d.HoldID), d.HoldExpiresAt, nullable(d.BookingID), data,
		nullable(d.Voucher), nullable(d.SupplierReference), nullable(d.ConfirmationNumber), string(d.Status),
		r.now(), d.UpdatedBy,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}

func (r *OrderDetailsRepo) DeleteRedeam(ctx context.Context, id int64, by *int64) error {
	return r.softDelete(ctx, "order_details_redeam", id, by)
}

// ActiveHolds returns unconfirmed rows whose hold has not lapsed at now.
func (r *OrderDetailsRepo) ActiveHolds(ctx context.Context, now time.Time) ([]orderdetails.Redeam, error) {
	rows, err := r.q.Query(ctx, `SELECT `+redeamCols+`
		FROM order_details_redeam
		WHERE deleted_at IS NULL AND hold_id IS NOT NULL AND hold_id <> ''
			AND (hold_expires_at IS NULL OR hold_expires_at > $1)
			AND status = $2
		ORDER BY hold_expires_at NULLS LAST, id`, now, string(orderdetails.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
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

func (r *OrderDetailsRepo) CreateUniversal(ctx context.Context, u *orderdetails.Universal) error {
	data, err := encodeData(u.BookingData)
	if err != nil {
		return err
	}
	now := r.now()
	if u.Status == "" {
		u.Status = orderdetails.StatusPending
	}
	err = r.q.QueryRow(ctx, `
		INSERT INTO order_details_universal (order_id, galaxy_order_id, external_order_id, booking_data, voucher,
			confirmation_number, status, supplier_reference, created_at, updated_at, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9,$10,$10)
		RETURNING id`,
		u.OrderID, nullable(u.GalaxyOrderID), nullable(u.ExternalOrderID), data, nullable(u.Voucher),
		nullable(u.ConfirmationNumber), string(u.Status), nullable(u.SupplierReference), now, u.CreatedBy,
	).Scan(&u.ID)
	if err != nil {
		return mapErr(err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	u.UpdatedBy = u.CreatedBy
	return nil
}

func (r *OrderDetailsRepo) GetUniversal(ctx context.Context, orderID int64) (orderdetails.Universal, error) {
	return scanUniversal(r.q.QueryRow(ctx, `SELECT `+universalCols+`
		FROM order_details_universal WHERE order_id=$1 AND deleted_at IS NULL`, orderID))
}

func (r *OrderDetailsRepo) GetUniversalByExternal(ctx context.Context, externalOrderID string) (orderdetails.Universal, error) {
	return scanUniversal(r.q.QueryRow(ctx, `SELECT `+universalCols+`
		FROM order_details_universal WHERE external_order_id=$1 AND deleted_at IS NULL
		ORDER BY id DESC LIMIT 1`, externalOrderID))
}

func (r *OrderDetailsRepo) UpdateUniversal(ctx context.Context, u orderdetails.Universal) error {
	data, err := encodeData(u.BookingData)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE order_details_universal
		SET galaxy_order_id=$2, external_order_id=$3, booking_data=$4, voucher=$5, confirmation_number=$6,
			status=$7, supplier_reference=$8, updated_at=$9, updated_by=$10
		WHERE id=$1 AND deleted_at IS NULL`,
		u.ID, nullable(u.GalaxyOrderID), nullable(u.ExternalOrderID), data, nullable(u.Voucher),
		nullable(u.ConfirmationNumber), string(u.Status), nullable(u.SupplierReference), r.now(), u.UpdatedBy,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}

func (r *OrderDetailsRepo) DeleteUniversal(ctx context.Context, id int64, by *int64) error {
	return r.softDelete(ctx, "order_details_universal", id, by)
}

func (r *OrderDetailsRepo) softDelete(ctx context.Context, table string, id int64, by *int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE `+table+` SET deleted_at=$2, deleted_by=$3 WHERE id=$1 AND deleted_at IS NULL`, id, r.now(), by)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}
