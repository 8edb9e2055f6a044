package cron

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRetentionRepo struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakeRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 7}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  10,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	before := time.Now().UTC()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCutoff := before.Add(-10 * 24 * time.Hour)
	if repo.cutoff.After(wantCutoff.Add(time.Minute)) || repo.cutoff.Before(wantCutoff.Add(-time.Minute)) {
		t.Fatalf("cutoff %s not near expected %s", repo.cutoff, wantCutoff)
	}
}

func TestOutboxRetentionJobDefaultsRetention(t *testing.T) {
	repo := &fakeRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	wantCutoff := time.Now().UTC().Add(-outboxRetentionDays * 24 * time.Hour)
	if repo.cutoff.After(wantCutoff.Add(time.Minute)) || repo.cutoff.Before(wantCutoff.Add(-time.Minute)) {
		t.Fatalf("cutoff %s not near expected %s", repo.cutoff, wantCutoff)
	}
}
