//go:build !gcp

package voucherstore

import (
	"context"
	"errors"
)

func newGCS(context.Context, Config) (Store, error) {
	return nil, errors.New("GCS voucher storage is not enabled in this build (use -tags gcp)")
}
