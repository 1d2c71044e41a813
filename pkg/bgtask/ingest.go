package bgtask

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stleox/seefaas/pkg/config"
)

type IngestTask struct {
	m        *BgTaskManager
	schedule string
	muRun    sync.Mutex
	c        *cron.Cron
}

func (m *BgTaskManager) addIngestTask(schedule string) {
	if schedule == "" {
		schedule = config.DefaultSchedule
	}
	m.bgTasks = append(m.bgTasks, &IngestTask{
		m:        m,
		schedule: schedule,
	})
}

// 单次全量处理；上一次还没结束时直接跳过
func (t *IngestTask) Run() {
	if !t.muRun.TryLock() {
		logrus.Warn("SeeFaaS skipped ingestion, the previous run is still going")
		return
	}
	defer t.muRun.Unlock()

	if _, err := t.m.driver.Run(context.Background()); err != nil {
		logrus.WithError(err).Error("SeeFaaS couldn't run ingestion")
	}
}

func (t *IngestTask) Start() error {
	c := cron.New()
	_, err := c.AddJob(t.schedule, t)
	if err != nil {
		return fmt.Errorf("adding ingest task with schedule %q: %w", t.schedule, err)
	}
	t.c = c
	c.Start()
	return nil
}

func (t *IngestTask) Stop() context.Context {
	if t.c == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return t.c.Stop()
}
