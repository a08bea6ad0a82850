package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/application/usecases"
	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
)

// orderFlags are shared by every order subcommand.
type orderFlags struct {
	orderID  int64
	supplier string
	by       int64

	product  string
	date     string
	timeSlot string
	quantity int
	first    string
	last     string
	email    string
	phone    string
	ref      string

	reason  string
	payment string
}

func (f *orderFlags) bindOrder(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.orderID, "order", 0, "order id")
	cmd.Flags().Int64Var(&f.by, "by", 0, "acting user id (audit)")
	_ = cmd.MarkFlagRequired("order")
}

func (f *orderFlags) bindSupplier(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.supplier, "supplier", string(orderdetails.SupplierDisney), "redeam supplier: disney or united_parks")
}

func (f *orderFlags) bindRequest(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.product, "product", "", "vendor product id")
	cmd.Flags().StringVar(&f.date, "date", "", "visit date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.timeSlot, "time", "", "time slot (HH:MM)")
	cmd.Flags().IntVar(&f.quantity, "qty", 1, "ticket quantity")
	cmd.Flags().StringVar(&f.first, "first-name", "", "customer first name")
	cmd.Flags().StringVar(&f.last, "last-name", "", "customer last name")
	cmd.Flags().StringVar(&f.email, "email", "", "customer email")
	cmd.Flags().StringVar(&f.phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&f.ref, "reference", "", "partner reference id")
}

func (f *orderFlags) actor() *int64 {
	if f.by == 0 {
		return nil
	}
	by := f.by
	return &by
}

func (f *orderFlags) supplierType() (orderdetails.SupplierType, error) {
	switch s := orderdetails.SupplierType(strings.ToLower(f.supplier)); s {
	case orderdetails.SupplierDisney, orderdetails.SupplierUnitedParks:
		return s, nil
	default:
		return "", fmt.Errorf("unknown supplier %q", f.supplier)
	}
}

func (f *orderFlags) request() (booking.BookingRequest, error) {
	d, err := time.Parse(time.DateOnly, f.date)
	if err != nil {
		return booking.BookingRequest{}, fmt.Errorf("--date: %w", err)
	}
	req := booking.BookingRequest{
		ProductID:   f.product,
		Date:        d,
		TimeSlot:    f.timeSlot,
		Quantity:    f.quantity,
		ReferenceID: f.ref,
		Customer: booking.Customer{
			FirstName: f.first,
			LastName:  f.last,
			Email:     f.email,
			Phone:     f.phone,
		},
	}
	return req, req.Validate()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withServices loads config, wires the app and runs fn until it returns or
// the process is interrupted.
func withServices(o *rootOpts, fn func(ctx context.Context, a *app, svc *services) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	svc, err := a.services(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, a, svc)
}

func newOrderCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Hold, confirm, cancel and issue vouchers for orders",
	}
	cmd.AddCommand(newRedeamCmd(o), newUniversalCmd(o), newVoucherCmd(o), newFindAndBookCmd(o))
	return cmd
}

func newRedeamCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "redeam", Short: "Redeam (Disney, United Parks) orders"}

	hold := &orderFlags{}
	holdCmd := &cobra.Command{
		Use:   "hold",
		Short: "Place a hold for an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			supplier, err := hold.supplierType()
			if err != nil {
				return err
			}
			req, err := hold.request()
			if err != nil {
				return err
			}
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.redeam.Hold(ctx, hold.orderID, supplier, req, hold.actor())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	hold.bindOrder(holdCmd)
	hold.bindSupplier(holdCmd)
	hold.bindRequest(holdCmd)

	confirm := &orderFlags{}
	confirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a held order",
		RunE: func(cmd *cobra.Command, args []string) error {
			supplier, err := confirm.supplierType()
			if err != nil {
				return err
			}
			payment := booking.PaymentData{Method: confirm.payment}
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.redeam.Confirm(ctx, confirm.orderID, supplier, payment, confirm.actor())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	confirm.bindOrder(confirmCmd)
	confirm.bindSupplier(confirmCmd)
	confirmCmd.Flags().StringVar(&confirm.payment, "payment-method", "", "payment method recorded with the confirmation")

	cancel := &orderFlags{}
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a booking or release its hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			supplier, err := cancel.supplierType()
			if err != nil {
				return err
			}
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.redeam.Cancel(ctx, cancel.orderID, supplier, cancel.reason, cancel.actor())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	cancel.bindOrder(cancelCmd)
	cancel.bindSupplier(cancelCmd)
	cancelCmd.Flags().StringVar(&cancel.reason, "reason", "", "cancellation reason")

	holdsCmd := &cobra.Command{
		Use:   "holds",
		Short: "List holds that have not lapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				rows, err := svc.redeam.ActiveHolds(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}

	cmd.AddCommand(holdCmd, confirmCmd, cancelCmd, holdsCmd)
	return cmd
}

func newUniversalCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "universal", Short: "Universal (SmartOrder) orders"}

	book := &orderFlags{}
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Place a SmartOrder order",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := book.request()
			if err != nil {
				return err
			}
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.universal.Book(ctx, book.orderID, req, book.actor())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	book.bindOrder(bookCmd)
	book.bindRequest(bookCmd)

	cancel := &orderFlags{}
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a SmartOrder order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.universal.Cancel(ctx, cancel.orderID, cancel.reason, cancel.actor())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	cancel.bindOrder(cancelCmd)
	cancelCmd.Flags().StringVar(&cancel.reason, "reason", "", "cancellation reason")

	refresh := &orderFlags{}
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-read an order from SmartOrder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				row, err := svc.universal.Refresh(ctx, refresh.orderID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			})
		},
	}
	refresh.bindOrder(refreshCmd)

	cmd.AddCommand(bookCmd, cancelCmd, refreshCmd)
	return cmd
}

func newVoucherCmd(o *rootOpts) *cobra.Command {
	f := &orderFlags{}
	var universal bool
	cmd := &cobra.Command{
		Use:   "voucher",
		Short: "Generate and store the voucher for a confirmed order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(o, func(ctx context.Context, _ *app, svc *services) error {
				var (
					v   *booking.VoucherData
					err error
				)
				if universal {
					v, err = svc.vouchers.IssueUniversal(ctx, f.orderID, f.actor())
				} else {
					supplier, serr := f.supplierType()
					if serr != nil {
						return serr
					}
					v, err = svc.vouchers.IssueRedeam(ctx, f.orderID, supplier, f.actor())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", v.ArtifactPath, v.DownloadURL)
				return nil
			})
		},
	}
	f.bindOrder(cmd)
	f.bindSupplier(cmd)
	cmd.Flags().BoolVar(&universal, "universal", false, "issue for a SmartOrder order")
	return cmd
}

func newFindAndBookCmd(o *rootOpts) *cobra.Command {
	f := &orderFlags{}
	var (
		adapter string
		prefer  []string
	)
	cmd := &cobra.Command{
		Use:   "find-and-book",
		Short: "Book the first open slot matching the preferred times",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return withServices(o, func(ctx context.Context, a *app, _ *services) error {
				resp := usecases.FindAndBook{Bookings: a.manager}.Execute(ctx, adapter, req, prefer)
				if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
				if !resp.Success {
					return fmt.Errorf("%s: %s", resp.ErrorCode, resp.ErrorMessage)
				}
				return nil
			})
		},
	}
	f.bindRequest(cmd)
	cmd.Flags().StringVar(&adapter, "adapter", usecases.UniversalAdapter, "adapter name")
	cmd.Flags().StringSliceVar(&prefer, "prefer", nil, "preferred time slots in order, e.g. 09:00,10:30")
	return cmd
}
