package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/answercache"
)

// CacheSweepJob deletes expired answer cache rows so lazy expiry on
// read is not the only thing keeping the table bounded.
type CacheSweepJob struct {
	cache *answercache.Cache
}

func NewCacheSweepJob(cache *answercache.Cache) *CacheSweepJob {
	return &CacheSweepJob{cache: cache}
}

func (j *CacheSweepJob) Name() string {
	return "answer_cache_sweep"
}

func (j *CacheSweepJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	removed, err := j.cache.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("swept expired answers", zap.Int64("removed", removed))
	}
	return nil
}
