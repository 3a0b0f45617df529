package syncjob

import (
	"context"
	"database/sql"
	"time"

	"WooWithBizimHesap/internal/database"
	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Store struct {
	db     *sqlx.DB
	logger *logging.Logger
	now    func() time.Time
}

func NewStore(db *sqlx.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Create(ctx context.Context, jobType string) (*Job, error) {
	s.logger.Debugf("Start syncjob.Create(%s)", jobType)
	defer s.logger.Debug("End syncjob.Create")

	now := s.now()
	job := &Job{Type: jobType, Status: StatusPending, Errors: ErrorLog{}, CreatedAt: now, UpdatedAt: now}
	query := s.db.Rebind(`INSERT INTO sync_jobs (type, status, errors, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := s.db.GetContext(ctx, &job.ID, query, job.Type, job.Status, job.Errors, now, now); err != nil {
		return nil, errors.Wrapf(err, "failed INSERT sync_jobs type=%s", jobType)
	}
	return job, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	return get(ctx, s.db, id)
}

func get(ctx context.Context, q sqlx.ExtContext, id int64) (*Job, error) {
	var job Job
	err := sqlx.GetContext(ctx, q, &job, q.Rebind("SELECT * FROM sync_jobs WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT sync_jobs id=%d", id)
	}
	return &job, nil
}

// List returns the newest jobs first; an empty jobType lists every type.
func (s *Store) List(ctx context.Context, jobType string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []Job
	var err error
	if jobType == "" {
		err = s.db.SelectContext(ctx, &jobs, s.db.Rebind("SELECT * FROM sync_jobs ORDER BY id DESC LIMIT ?"), limit)
	} else {
		err = s.db.SelectContext(ctx, &jobs, s.db.Rebind("SELECT * FROM sync_jobs WHERE type = ? ORDER BY id DESC LIMIT ?"), jobType, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT sync_jobs")
	}
	return jobs, nil
}

// mutate runs fn in a transaction after locking the job row, then reloads job.
// The initial UPDATE takes the row lock on postgres and the write lock on sqlite.
func (s *Store) mutate(ctx context.Context, job *Job, fn func(tx *sqlx.Tx, cur *Job) error) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET updated_at = ? WHERE id = ?"), s.now(), job.ID)
		if err != nil {
			return errors.Wrap(err, "failed UPDATE sync_jobs")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(ErrNotFound, "id %d", job.ID)
		}
		cur, err := get(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		if cur.Terminal() {
			return errors.Wrapf(ErrTerminal, "job %d is %s", cur.ID, cur.Status)
		}
		if err := fn(tx, cur); err != nil {
			return err
		}
		fresh, err := get(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		*job = *fresh
		return nil
	})
	return err
}

// Start moves the job to processing with the expected item count.
func (s *Store) Start(ctx context.Context, job *Job, total int) error {
	s.logger.WithField("job_id", job.ID).Debugf("Start syncjob.Start(%d)", total)
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		if total < 0 {
			total = 0
		}
		started := cur.StartedAt
		if started == nil {
			now := s.now()
			started = &now
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sync_jobs SET status = ?, total_items = ?, started_at = ? WHERE id = ?`),
			StatusProcessing, total, started, cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs start")
	})
}

// Seal starts the job (if needed) and fixes its total. Only sealed jobs are
// finalized by RecordItem.
func (s *Store) Seal(ctx context.Context, job *Job, total int) error {
	if err := s.Start(ctx, job, total); err != nil {
		return err
	}
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET sealed = ? WHERE id = ?"), true, cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs seal")
	})
}

// Extend raises total_items by n. Passes that discover their items page by
// page grow the total as they go; sealed jobs keep theirs.
func (s *Store) Extend(ctx context.Context, job *Job, n int) error {
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		if n <= 0 || cur.Sealed {
			return nil
		}
		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET total_items = total_items + ? WHERE id = ?"), n, cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs extend")
	})
}

// Progress records counters mid-run. processed_items never decreases and is
// capped at total_items.
func (s *Store) Progress(ctx context.Context, job *Job, processed, success, failed int) error {
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		p := processed
		if p > cur.TotalItems {
			p = cur.TotalItems
		}
		if p < cur.ProcessedItems {
			p = cur.ProcessedItems
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sync_jobs SET processed_items = ?, success_count = ?, error_count = ? WHERE id = ?`),
			p, success, failed, cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs progress")
	})
}

// AddError appends msg to the error log; error_count follows the log length.
func (s *Store) AddError(ctx context.Context, job *Job, msg string) error {
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		return appendError(ctx, tx, cur, msg)
	})
}

func appendError(ctx context.Context, tx *sqlx.Tx, cur *Job, msg string) error {
	log := append(ErrorLog{}, cur.Errors...)
	log = append(log, msg)
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET errors = ?, error_count = ? WHERE id = ?"), log, len(log), cur.ID)
	return errors.Wrap(err, "failed UPDATE sync_jobs errors")
}

// Complete finishes the job. Completing an already completed job is a no-op.
func (s *Store) Complete(ctx context.Context, job *Job) error {
	err := s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET status = ?, completed_at = ? WHERE id = ?"),
			StatusCompleted, s.now(), cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs complete")
	})
	if errors.Is(err, ErrTerminal) {
		cur, gerr := s.Get(ctx, job.ID)
		if gerr == nil && cur.Status == StatusCompleted {
			*job = *cur
			return nil
		}
	}
	return err
}

// Fail appends msg and marks the job failed.
func (s *Store) Fail(ctx context.Context, job *Job, msg string) error {
	s.logger.WithField("job_id", job.ID).Debugf("Start syncjob.Fail(%s)", msg)
	return s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		if err := appendError(ctx, tx, cur, msg); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE sync_jobs SET status = ?, completed_at = ? WHERE id = ?"),
			StatusFailed, s.now(), cur.ID)
		return errors.Wrap(err, "failed UPDATE sync_jobs fail")
	})
}

// RecordItem counts one processed item of a sealed job. It is safe to call
// from concurrent workers: the caller whose increment brings processed_items
// to the sealed total completes the job and gets finalized=true; every other
// caller gets false.
func (s *Store) RecordItem(ctx context.Context, jobID int64, ok bool, msg string) (finalized bool, err error) {
	job := &Job{ID: jobID}
	err = s.mutate(ctx, job, func(tx *sqlx.Tx, cur *Job) error {
		success := 0
		if ok {
			success = 1
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sync_jobs
		SET processed_items = processed_items + 1, success_count = success_count + ?
		WHERE id = ? AND status = ? AND processed_items < total_items`), success, cur.ID, StatusProcessing)
		if err != nil {
			return errors.Wrap(err, "failed UPDATE sync_jobs record")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Errorf("job %d: item beyond total %d or job not started", cur.ID, cur.TotalItems)
		}
		if !ok {
			if msg == "" {
				msg = "item failed"
			}
			if err := appendError(ctx, tx, cur, msg); err != nil {
				return err
			}
		}
		res, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE sync_jobs SET status = ?, completed_at = ?
		WHERE id = ? AND sealed = ? AND processed_items = total_items AND status = ?`),
			StatusCompleted, s.now(), cur.ID, true, StatusProcessing)
		if err != nil {
			return errors.Wrap(err, "failed UPDATE sync_jobs finalize")
		}
		n, _ := res.RowsAffected()
		finalized = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return finalized, nil
}

// PruneOlderThan deletes jobs created more than age ago and returns how many.
func (s *Store) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := s.now().Add(-age)
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sync_jobs WHERE created_at < ?"), cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed DELETE sync_jobs")
	}
	n, _ := res.RowsAffected()
	s.logger.Infof("pruned %d sync jobs older than %s", n, age)
	return n, nil
}
