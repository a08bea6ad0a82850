package usecases

import (
	"context"
	"fmt"
)

type PingProvider struct {
	Bookings Bookings
}

func (u PingProvider) Execute(ctx context.Context, adapter string) error {
	if u.Bookings == nil {
		return fmt.Errorf("booking manager is nil")
	}
	if !u.Bookings.TestConnection(ctx, adapter) {
		return fmt.Errorf("%s: connection test failed", adapter)
	}
	return nil
}
