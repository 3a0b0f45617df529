// Package syncjob persists the ledger of synchronization runs: one row per run
// with its counters, error log and lifecycle timestamps.
//
// Lifecycle: pending -> processing -> completed | failed. Completed and failed
// rows are terminal; every mutation on them returns ErrTerminal. Rows are only
// removed by PruneOlderThan.
package syncjob

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	TypeProducts = "products"
	TypeOrders   = "orders"
	TypeFetch    = "fetch"
	TypePush     = "push"
	TypeAll      = "all"

	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	// SampleSize bounds the error messages reported by status endpoints.
	SampleSize = 10
)

var (
	ErrTerminal = errors.New("sync job is terminal")
	ErrNotFound = errors.New("sync job not found")
)

// ErrorLog is the append-only error list, stored as a JSON array.
type ErrorLog []string

func (l ErrorLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ErrorLog) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = ErrorLog{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.Errorf("cannot scan %T into ErrorLog", src)
	}
	if len(b) == 0 {
		*l = ErrorLog{}
		return nil
	}
	return json.Unmarshal(b, (*[]string)(l))
}

type Job struct {
	ID             int64      `db:"id" json:"id"`
	Type           string     `db:"type" json:"type"`
	Status         string     `db:"status" json:"status"`
	TotalItems     int        `db:"total_items" json:"total_items"`
	ProcessedItems int        `db:"processed_items" json:"processed_items"`
	SuccessCount   int        `db:"success_count" json:"success_count"`
	ErrorCount     int        `db:"error_count" json:"error_count"`
	Errors         ErrorLog   `db:"errors" json:"-"`
	Sealed         bool       `db:"sealed" json:"sealed"`
	StartedAt      *time.Time `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Percent is processed/total in percent, rounded to two decimals.
// A job with no items is 100% once completed and 0% otherwise.
func (j *Job) Percent() float64 {
	if j.TotalItems <= 0 {
		if j.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	p := float64(j.ProcessedItems) * 100 / float64(j.TotalItems)
	return math.Round(p*100) / 100
}

// ErrorSample returns at most n messages from the head of the error log.
func (j *Job) ErrorSample(n int) []string {
	if len(j.Errors) <= n {
		return append([]string{}, j.Errors...)
	}
	return append([]string{}, j.Errors[:n]...)
}

// Report is the polling view of a job.
type Report struct {
	*Job
	Percent     float64  `json:"percent"`
	ErrorSample []string `json:"errors"`
	ErrorTotal  int      `json:"error_total"`
}

func (j *Job) Report() Report {
	return Report{
		Job:         j,
		Percent:     j.Percent(),
		ErrorSample: j.ErrorSample(SampleSize),
		ErrorTotal:  len(j.Errors),
	}
}
