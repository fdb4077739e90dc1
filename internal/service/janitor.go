package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var sweepExtensions = map[string]bool{".csv": true, ".json": true, ".parquet": true}

// Janitor removes generated files from the staging directory once they
// are older than the retention window.
type Janitor struct {
	dir       string
	retention time.Duration
	logger    *zap.Logger
	cron      *cron.Cron
}

func NewJanitor(dir string, retention time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		dir:       dir,
		retention: retention,
		logger:    logger.Named("janitor"),
		cron:      cron.New(),
	}
}

// Start schedules Sweep on the given cron spec
func (j *Janitor) Start(spec string) error {
	if j.retention <= 0 {
		j.logger.Info("retention disabled, janitor not scheduled")
		return nil
	}
	if _, err := j.cron.AddFunc(spec, func() { j.Sweep(time.Now()) }); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes artifacts last modified before now minus retention and returns how many were removed
func (j *Janitor) Sweep(now time.Time) int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("failed to read staging dir", zap.Error(err))
		}
		return 0
	}

	cutoff := now.Add(-j.retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !sweepExtensions[filepath.Ext(e.Name())] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, e.Name())); err != nil {
			j.logger.Warn("failed to remove artifact", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("removed expired artifacts", zap.Int("count", removed))
	}
	return removed
}
