package sqlite

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedeamLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(15 * time.Minute)

	row := &orderdetails.Redeam{
		OrderID:      10,
		HoldID:       "HOLD123",
		SupplierType: orderdetails.SupplierDisney,
		BookingData:  map[string]any{"items": []any{"a"}},
	}
	row.HoldExpiresAt = &exp
	require.NoError(t, s.CreateRedeam(ctx, row))
	require.NotZero(t, row.ID)

	got, err := s.GetRedeam(ctx, 10, orderdetails.SupplierDisney)
	require.NoError(t, err)
	assert.Equal(t, "HOLD123", got.HoldID)
	require.NotNil(t, got.HoldExpiresAt)
	assert.True(t, got.HoldExpiresAt.Equal(exp))
	assert.True(t, got.IsOnHold(now))
	assert.Equal(t, orderdetails.StatusPending, got.Status)
	assert.Len(t, got.BookingData["items"], 1)

	dup := &orderdetails.Redeam{OrderID: 10, SupplierType: orderdetails.SupplierDisney}
	assert.ErrorIs(t, s.CreateRedeam(ctx, dup), internaltypes.ErrConflict)

	other := &orderdetails.Redeam{OrderID: 10, SupplierType: orderdetails.SupplierUnitedParks}
	require.NoError(t, s.CreateRedeam(ctx, other))

	holds, err := s.ActiveHolds(ctx, now)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, row.ID, holds[0].ID)

	holds, err = s.ActiveHolds(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, holds)

	got.Status = orderdetails.StatusConfirmed
	got.BookingID = "BK-1"
	got.ConfirmationNumber = "C-1"
	require.NoError(t, s.UpdateRedeam(ctx, got))

	byHold, err := s.GetRedeamByHold(ctx, "HOLD123")
	require.NoError(t, err)
	assert.Equal(t, "BK-1", byHold.BookingID)
	assert.True(t, byHold.IsConfirmed())

	by := int64(5)
	require.NoError(t, s.DeleteRedeam(ctx, got.ID, &by))
	_, err = s.GetRedeam(ctx, 10, orderdetails.SupplierDisney)
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRedeam(ctx, got.ID, &by), internaltypes.ErrNotFound)

	// the live-row constraint frees up after a soft delete
	require.NoError(t, s.CreateRedeam(ctx, &orderdetails.Redeam{OrderID: 10, SupplierType: orderdetails.SupplierDisney}))
}

func TestUniversalLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	u := &orderdetails.Universal{
		OrderID:         20,
		GalaxyOrderID:   "G-1",
		ExternalOrderID: "ORD-20",
		Status:          orderdetails.StatusConfirmed,
		BookingData: map[string]any{
			"createdTicketResponses": []any{map[string]any{"ticketId": "T1"}},
		},
	}
	require.NoError(t, s.CreateUniversal(ctx, u))

	got, err := s.GetUniversalByExternal(ctx, "ORD-20")
	require.NoError(t, err)
	assert.Equal(t, "G-1", got.GalaxyOrderID)
	assert.Equal(t, 1, got.TicketCount())
	assert.False(t, got.CreatedAt.IsZero())

	got.Voucher = "vouchers/universal/G-1.html"
	require.NoError(t, s.UpdateUniversal(ctx, got))
	got, err = s.GetUniversal(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "vouchers/universal/G-1.html", got.Voucher)

	assert.ErrorIs(t, s.CreateUniversal(ctx, &orderdetails.Universal{OrderID: 20}), internaltypes.ErrConflict)
	assert.ErrorIs(t, s.UpdateUniversal(ctx, orderdetails.Universal{ID: 999}), internaltypes.ErrNotFound)
}

func TestErrorMappingWithMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := New(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM order_details_universal WHERE order_id=?")).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	_, err = s.GetUniversal(ctx, 1)
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_details_redeam SET deleted_at=?")).
		WithArgs(sqlmock.AnyArg(), nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.DeleteRedeam(ctx, 3, nil), internaltypes.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
