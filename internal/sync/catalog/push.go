package catalog

import (
	"context"
	"fmt"
	"time"

	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/pkg/errors"
)

// PushIDs pushes the given staging records now and returns the finished job.
func (p *Pipeline) PushIDs(ctx context.Context, ids []int64) (*syncjob.Job, error) {
	records, err := p.staging.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return p.pushSync(ctx, records)
}

// PushPending pushes every pending or failed staging record now.
func (p *Pipeline) PushPending(ctx context.Context) (*syncjob.Job, error) {
	records, err := p.staging.Pending(ctx, p.cfg.PendingLimit)
	if err != nil {
		return nil, err
	}
	return p.pushSync(ctx, records)
}

func (p *Pipeline) pushSync(ctx context.Context, records []staging.Record) (*syncjob.Job, error) {
	p.logger.Debug("Start push")
	defer p.logger.Debug("End push")

	job, err := p.openPush(ctx, records)
	if err != nil || job.Terminal() {
		return job, err
	}
	for i := range records {
		if err := p.pushAndRecord(ctx, job.ID, &records[i]); err != nil {
			return job, err
		}
	}
	return p.jobs.Get(ctx, job.ID)
}

// EnqueuePush hands the records to the worker pool, item i starting
// i*PushDelay from now, and returns the job at once. No ids means every
// pending record.
func (p *Pipeline) EnqueuePush(ctx context.Context, ids []int64) (*syncjob.Job, error) {
	var (
		records []staging.Record
		err     error
	)
	if len(ids) == 0 {
		records, err = p.staging.Pending(ctx, p.cfg.PendingLimit)
	} else {
		records, err = p.staging.GetMany(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	job, err := p.openPush(ctx, records)
	if err != nil || job.Terminal() {
		return job, err
	}
	for i := range records {
		rec := records[i]
		p.pool.SubmitAfter(p.cfg.PushDelay*time.Duration(i), func(ctx context.Context) error {
			return p.pushAndRecord(ctx, job.ID, &rec)
		})
	}
	p.logger.WithField("job_id", job.ID).Infof("queued %d staging records for push", len(records))
	return job, nil
}

// openPush creates the push job sealed at len(records). An empty batch is
// completed right away.
func (p *Pipeline) openPush(ctx context.Context, records []staging.Record) (*syncjob.Job, error) {
	job, err := p.jobs.Create(ctx, syncjob.TypePush)
	if err != nil {
		return nil, err
	}
	if err := p.jobs.Seal(ctx, job, len(records)); err != nil {
		return job, err
	}
	if len(records) == 0 {
		if err := p.jobs.Complete(ctx, job); err != nil {
			return job, err
		}
	}
	return job, nil
}

func (p *Pipeline) pushAndRecord(ctx context.Context, jobID int64, rec *staging.Record) error {
	msg := p.pushOne(ctx, rec)
	finalized, err := p.jobs.RecordItem(ctx, jobID, msg == "", msg)
	if err != nil {
		return errors.Wrapf(err, "record push of staging %d", rec.ID)
	}
	if finalized {
		p.logger.WithField("job_id", jobID).Info("push job finished")
	}
	return nil
}

// pushOne creates or updates the WooCommerce product for rec and stores the
// outcome on the record. It returns "" on success and the failure text
// otherwise; nothing it meets is returned as an error.
func (p *Pipeline) pushOne(ctx context.Context, rec *staging.Record) string {
	log := p.logger.WithField("sku", rec.SKU)

	wooID, err := p.upsertRemote(ctx, rec)
	if err == nil {
		if err = p.staging.MarkSynced(ctx, rec.ID, wooID); err == nil {
			metrics.SyncItemsTotal.WithLabelValues("push", metrics.OutcomeOK).Inc()
			log.Debugf("staging %d pushed as product %d", rec.ID, wooID)
			return ""
		}
	}

	reason := err.Error()
	log.Warnf("staging %d push failed: %s", rec.ID, reason)
	metrics.SyncItemsTotal.WithLabelValues("push", metrics.OutcomeFailed).Inc()
	if merr := p.staging.MarkFailed(ctx, rec.ID, reason); merr != nil {
		log.Errorf("failed to mark staging %d failed: %v", rec.ID, merr)
	}
	return fmt.Sprintf("%s: %s", label(rec), reason)
}

func (p *Pipeline) upsertRemote(ctx context.Context, rec *staging.Record) (int64, error) {
	product, err := mapping.StagingToWoo(rec)
	if err != nil {
		return 0, err
	}
	p.terms.apply(ctx, rec, product)

	existing, err := p.commerce.GetProductBySku(ctx, product.Sku)
	if err != nil {
		return 0, err
	}
	var saved *models.Product
	if existing != nil {
		saved, err = p.commerce.UpdateProduct(ctx, existing.ID, product)
	} else {
		saved, err = p.commerce.CreateProduct(ctx, product)
	}
	if err != nil {
		return 0, err
	}
	if saved == nil || saved.ID <= 0 {
		return 0, errors.New("WooCommerce returned no product id")
	}
	return saved.ID, nil
}

func label(rec *staging.Record) string {
	if rec.SKU != "" {
		return rec.SKU
	}
	return rec.ExternalID
}
