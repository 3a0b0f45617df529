package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and prune sync job records",
	}

	var jobType string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *app) error {
				jobs, err := a.jobs.List(ctx, jobType, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tOK\tERRORS\tSTARTED")
				for _, j := range jobs {
					started := "-"
					if j.StartedAt != nil {
						started = j.StartedAt.Local().Format(time.DateTime)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
						j.ID, j.Type, j.Status, j.ProcessedItems, j.TotalItems, j.SuccessCount, j.ErrorCount, started)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&jobType, "type", "", "only jobs of this type (products, orders, push, fetch)")
	list.Flags().IntVar(&limit, "limit", 20, "number of jobs to show")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one job with its error sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid job id %q", args[0])
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				job, err := a.jobs.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, job.Report())
			})
		},
	}

	var days int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			age := r.cfg.Retention()
			if days > 0 {
				age = time.Duration(days) * 24 * time.Hour
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				n, err := a.jobs.PruneOlderThan(ctx, age)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d jobs\n", n)
				return err
			})
		},
	}
	prune.Flags().IntVar(&days, "days", 0, "retention in days (0 uses JOBS.RetentionDays)")

	cmd.AddCommand(list, show, prune)
	return cmd
}
