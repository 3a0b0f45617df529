package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"github.com/pkg/errors"
)

const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeDryRun  = "dry_run"
)

// ImportOptions selects the window [Offset, Offset+Limit) of the input.
// Limit 0 means to the end.
type ImportOptions struct {
	Offset int
	Limit  int
	DryRun bool
}

func (o ImportOptions) before(i int) bool { return i < o.Offset }

func (o ImportOptions) after(i int) bool { return o.Limit > 0 && i >= o.Offset+o.Limit }

// ItemResult is reported once per record of the window.
type ItemResult struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
}

type ImportSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	DryRun  int `json:"dry_run"`
}

func (s *ImportSummary) add(res ItemResult) {
	s.Total++
	switch res.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeDryRun:
		s.DryRun++
	default:
		s.Skipped++
	}
}

// Import streams a catalog export into the staging table. The input is a JSON
// array of items or an object whose "data" member is that array; items are
// decoded one at a time so the file is never held in memory. progress, when
// set, sees every record of the window as it is handled. A record that does
// not map is skipped; a store failure stops the import.
func (p *Pipeline) Import(ctx context.Context, r io.Reader, opts ImportOptions, progress func(ItemResult)) (*ImportSummary, error) {
	p.logger.Debug("Start Import")
	defer p.logger.Debug("End Import")

	dec := json.NewDecoder(r)
	if err := openItems(dec); err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i := 0; dec.More(); i++ {
		if opts.after(i) {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return summary, errors.Wrapf(err, "failed to decode item %d", i)
		}
		if opts.before(i) {
			continue
		}
		res, err := p.importItem(ctx, i, raw, opts.DryRun)
		if err != nil {
			return summary, err
		}
		summary.add(res)
		if progress != nil {
			progress(res)
		}
	}
	p.logger.Infof("import done: %d records, %d created, %d updated, %d skipped, %d dry run",
		summary.Total, summary.Created, summary.Updated, summary.Skipped, summary.DryRun)
	return summary, nil
}

// openItems positions dec inside the item array.
func openItems(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return &mapping.ParseError{Field: "body", Reason: "empty or not JSON"}
	}
	switch tok {
	case json.Delim('['):
		return nil
	case json.Delim('{'):
	default:
		return &mapping.ParseError{Field: "body", Reason: "expected an array or an object with data"}
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return &mapping.ParseError{Field: "body", Reason: err.Error()}
		}
		if key == "data" {
			tok, err := dec.Token()
			if err != nil || tok != json.Delim('[') {
				return &mapping.ParseError{Field: "data", Reason: "not an array"}
			}
			return nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return &mapping.ParseError{Field: fmt.Sprint(key), Reason: err.Error()}
		}
	}
	return &mapping.ParseError{Field: "data", Reason: "missing"}
}

func (p *Pipeline) importItem(ctx context.Context, i int, raw json.RawMessage, dryRun bool) (ItemResult, error) {
	res := ItemResult{Index: i}
	rec, err := mapping.CatalogItem(raw)
	if err != nil {
		res.Outcome, res.Reason = OutcomeSkipped, err.Error()
		metrics.SyncItemsTotal.WithLabelValues("import", metrics.OutcomeSkipped).Inc()
		p.logger.Debugf("catalog item %d skipped: %v", i, err)
		return res, nil
	}
	res.ExternalID, res.Name = rec.ExternalID, rec.Name
	if dryRun {
		res.Outcome = OutcomeDryRun
		return res, nil
	}

	created, err := p.staging.Upsert(ctx, rec)
	if err != nil {
		return res, err
	}
	res.Outcome = OutcomeUpdated
	if created {
		res.Outcome = OutcomeCreated
	}
	metrics.SyncItemsTotal.WithLabelValues("import", metrics.OutcomeOK).Inc()
	return res, nil
}

// Fetch pulls the ERP catalog and imports the window of it under the fetch
// lock, recording a fetch job. When another fetch is running it returns nil
// values and no error.
func (p *Pipeline) Fetch(ctx context.Context, opts ImportOptions) (*syncjob.Job, *ImportSummary, error) {
	p.logger.Info("Start Fetch")
	defer p.logger.Info("End Fetch")

	var (
		job     *syncjob.Job
		summary *ImportSummary
	)
	ran, err := p.guard.TryWithLock(ctx, lock.KeyCatalogFetch, p.cfg.FetchTTL, func(ctx context.Context) error {
		var err error
		job, summary, err = p.fetch(ctx, opts)
		return err
	})
	if !ran {
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to take catalog fetch lock")
		}
		p.logger.Info("catalog fetch already running, skipping")
		return nil, nil, nil
	}
	return job, summary, err
}

func (p *Pipeline) fetch(ctx context.Context, opts ImportOptions) (*syncjob.Job, *ImportSummary, error) {
	job, err := p.jobs.Create(ctx, syncjob.TypeFetch)
	if err != nil {
		return nil, nil, err
	}
	log := p.logger.WithField("job_id", job.ID)

	items, err := p.erp.FetchProductsRaw(ctx)
	if err != nil {
		msg := fmt.Sprintf("fetch catalog: %v", err)
		if ferr := p.jobs.Fail(ctx, job, msg); ferr != nil {
			log.Errorf("failed to mark job failed: %v", ferr)
		}
		return job, nil, errors.New(msg)
	}

	var window []json.RawMessage
	for i, raw := range items {
		if opts.after(i) {
			break
		}
		if !opts.before(i) {
			window = append(window, raw)
		}
	}
	if err := p.jobs.Seal(ctx, job, len(window)); err != nil {
		return job, nil, err
	}
	if len(window) == 0 {
		return job, &ImportSummary{}, p.jobs.Complete(ctx, job)
	}

	summary := &ImportSummary{}
	for k, raw := range window {
		res, err := p.importItem(ctx, opts.Offset+k, raw, opts.DryRun)
		if err != nil {
			if ferr := p.jobs.Fail(ctx, job, err.Error()); ferr != nil {
				log.Errorf("failed to mark job failed: %v", ferr)
			}
			return job, summary, err
		}
		summary.add(res)
		msg := ""
		if res.Outcome == OutcomeSkipped {
			msg = fmt.Sprintf("item %d: %s", res.Index, res.Reason)
		}
		if _, err := p.jobs.RecordItem(ctx, job.ID, res.Outcome != OutcomeSkipped, msg); err != nil {
			return job, summary, err
		}
	}

	fresh, err := p.jobs.Get(ctx, job.ID)
	if err != nil {
		return job, summary, err
	}
	log.Infof("catalog fetch done: %d rows, %d created, %d updated, %d skipped",
		len(window), summary.Created, summary.Updated, summary.Skipped)
	return fresh, summary, nil
}
