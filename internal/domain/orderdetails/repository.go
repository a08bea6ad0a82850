package orderdetails

import (
	"context"
	"time"
)

// RedeamRepository stores Redeam rows. At most one live row exists per
// (order, supplier type); Create reports internaltypes.ErrConflict otherwise.
type RedeamRepository interface {
	CreateRedeam(ctx context.Context, r *Redeam) error
	GetRedeam(ctx context.Context, orderID int64, supplier SupplierType) (Redeam, error)
	GetRedeamByHold(ctx context.Context, holdID string) (Redeam, error)
	UpdateRedeam(ctx context.Context, r Redeam) error
	DeleteRedeam(ctx context.Context, id int64, by *int64) error
	ActiveHolds(ctx context.Context, now time.Time) ([]Redeam, error)
}

// UniversalRepository stores Universal rows, one live row per order.
type UniversalRepository interface {
	CreateUniversal(ctx context.Context, u *Universal) error
	GetUniversal(ctx context.Context, orderID int64) (Universal, error)
	GetUniversalByExternal(ctx context.Context, externalOrderID string) (Universal, error)
	UpdateUniversal(ctx context.Context, u Universal) error
	DeleteUniversal(ctx context.Context, id int64, by *int64) error
}

type Repository interface {
	RedeamRepository
	UniversalRepository
}
