package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

// PurgeFunc deletes rows older than cutoff and returns how many went.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// RetentionJobParams describe one table-trimming job. Days counts back from
// the UTC run time.
type RetentionJobParams struct {
	Name   string
	Logger *logger.Logger
	DB     txRunner
	Purge  PurgeFunc
	Days   int
}

type retentionJob struct {
	name  string
	logg  *logger.Logger
	db    txRunner
	purge PurgeFunc
	days  int
	now   func() time.Time
}

// NewRetentionJob builds a job that calls Purge in its own transaction.
// Used for published outbox rows and read notifications.
func NewRetentionJob(p RetentionJobParams) (Job, error) {
	switch {
	case p.Name == "":
		return nil, fmt.Errorf("retention job name required")
	case p.Logger == nil, p.DB == nil, p.Purge == nil:
		return nil, fmt.Errorf("%s: logger, db and purge func are required", p.Name)
	case p.Days <= 0:
		return nil, fmt.Errorf("%s: retention must be at least one day, got %d", p.Name, p.Days)
	}
	return &retentionJob{
		name:  p.Name,
		logg:  p.Logger,
		db:    p.DB,
		purge: p.Purge,
		days:  p.Days,
		now:   time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var deleted int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		deleted, err = j.purge(ctx, tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}
