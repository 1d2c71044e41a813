package bgtask

import (
	"context"

	"github.com/stleox/seefaas/pkg/ingest"
)

// BgTaskManager manages background periodical tasks.
// Includes:
// - Run the ingestion driver over the unprocessed backlog
type BgTaskManager struct {
	bgTasks []BgTask
	driver  *ingest.Driver
}

type BgTask interface {
	Start() error
	// Stop returns a context done once the running job, if any, finished.
	Stop() context.Context
}

func NewBgTaskManager(driver *ingest.Driver, schedule string) *BgTaskManager {
	m := &BgTaskManager{
		bgTasks: make([]BgTask, 0),
		driver:  driver,
	}
	m.addIngestTask(schedule)
	return m
}

func (m *BgTaskManager) StartAll() error {
	for _, task := range m.bgTasks {
		if err := task.Start(); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops scheduling and waits for running jobs until ctx is done.
func (m *BgTaskManager) StopAll(ctx context.Context) {
	for _, task := range m.bgTasks {
		select {
		case <-task.Stop().Done():
		case <-ctx.Done():
			return
		}
	}
}
