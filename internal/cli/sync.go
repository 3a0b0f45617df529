package cli

import (
	"context"
	"fmt"
	"strconv"

	"WooWithBizimHesap/internal/database/model/syncjob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass now",
	}

	products := &cobra.Command{
		Use:   "products",
		Short: "Copy ERP prices and stock onto WooCommerce products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *app) error {
				job, err := a.products.SyncAll(ctx)
				return printJob(cmd, job, err)
			})
		},
	}

	var pages int
	orders := &cobra.Command{
		Use:   "orders",
		Short: "Mirror recent WooCommerce orders into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *app) error {
				job, err := a.orders.SyncAll(ctx, pages)
				return printJob(cmd, job, err)
			})
		},
	}
	orders.Flags().IntVar(&pages, "pages", 0, "pages to walk (0 uses ORDERSYNC.MaxPages)")

	one := &cobra.Command{
		Use:   "order <woo-id>",
		Short: "Mirror a single WooCommerce order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.Errorf("invalid order id %q", args[0])
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				o, err := a.orders.SyncOrder(ctx, id)
				if err != nil {
					return err
				}
				if o == nil {
					return errors.Errorf("order %d not found", id)
				}
				return printJSON(cmd, o)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <woo-id> <status>",
		Short: "Set an order status in WooCommerce and mirror the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.Errorf("invalid order id %q", args[0])
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				o, err := a.orders.UpdateStatus(ctx, id, args[1])
				if err != nil {
					return err
				}
				if o == nil {
					return errors.Errorf("order %d not found", id)
				}
				return printJSON(cmd, o)
			})
		},
	}

	cmd.AddCommand(products, orders, one, status)
	return cmd
}

// printJob prints the job report; a nil job without error means another
// process held the lock.
func printJob(cmd *cobra.Command, job *syncjob.Job, err error) error {
	if err != nil {
		return err
	}
	if job == nil {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "skipped: another run holds the lock")
		return err
	}
	return printJSON(cmd, job.Report())
}
