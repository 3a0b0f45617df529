package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/sync/catalog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Stage ERP catalog records and push them to WooCommerce",
	}

	var opts catalog.ImportOptions
	var quiet bool
	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Stage catalog items from a JSON file (CATALOG.File when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := r.cfg.CATALOG.File
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no catalog file given")
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				f, err := os.Open(path)
				if err != nil {
					return errors.Wrapf(err, "failed to open %s", path)
				}
				defer f.Close()

				out := cmd.OutOrStdout()
				summary, err := a.catalog.Import(ctx, f, opts, func(res catalog.ItemResult) {
					if quiet {
						return
					}
					if res.Reason != "" {
						fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", res.Index, res.Outcome, res.ExternalID, res.Reason)
						return
					}
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", res.Index, res.Outcome, res.ExternalID, res.Name)
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, summary)
			})
		},
	}
	addWindowFlags(importCmd, &opts)
	importCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")

	var fetchOpts catalog.ImportOptions
	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Stage catalog items straight from the ERP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *app) error {
				job, summary, err := a.catalog.Fetch(ctx, fetchOpts)
				if err != nil {
					return err
				}
				if job == nil {
					return printJob(cmd, nil, nil)
				}
				return printJSON(cmd, map[string]interface{}{"job": job.Report(), "summary": summary})
			})
		},
	}
	addWindowFlags(fetch, &fetchOpts)

	var pending, async bool
	push := &cobra.Command{
		Use:   "push [id...]",
		Short: "Push staged records to WooCommerce",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return errors.Errorf("invalid staging id %q", arg)
				}
				ids = append(ids, id)
			}
			if len(ids) == 0 && !pending {
				return errors.New("give staging ids or --pending")
			}
			if len(ids) > 0 && pending {
				return errors.New("staging ids and --pending are exclusive")
			}
			return r.run(cmd, func(ctx context.Context, a *app) error {
				job, err := pushJob(ctx, a, ids, async)
				if err != nil {
					return err
				}
				if async {
					// The job is final once every queued push has run.
					a.pool.Wait()
					if job, err = a.jobs.Get(ctx, job.ID); err != nil {
						return err
					}
				}
				return printJob(cmd, job, nil)
			})
		},
	}
	push.Flags().BoolVar(&pending, "pending", false, "push every pending or failed record")
	push.Flags().BoolVar(&async, "async", false, "queue pushes through the worker pool spaced by CATALOG.PushDelay")

	cmd.AddCommand(importCmd, fetch, push)
	return cmd
}

func pushJob(ctx context.Context, a *app, ids []int64, async bool) (*syncjob.Job, error) {
	switch {
	case async:
		return a.catalog.EnqueuePush(ctx, ids)
	case len(ids) > 0:
		return a.catalog.PushIDs(ctx, ids)
	default:
		return a.catalog.PushPending(ctx)
	}
}

func addWindowFlags(cmd *cobra.Command, opts *catalog.ImportOptions) {
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "skip this many items")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "process at most this many items (0 means all)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate without writing")
}
