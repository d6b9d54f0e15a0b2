package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopify_insta_v1/internal/service"
)

// StateCleanupTask 过期 state 清理任务
// state 过期后已无法核销，清理纯粹是防止表无限膨胀
type StateCleanupTask struct {
	StateService *service.StateService
	Cron         *cron.Cron

	logger *zap.SugaredLogger
}

// NewStateCleanupTask 工厂方法
func NewStateCleanupTask(stateService *service.StateService, logger *zap.SugaredLogger) *StateCleanupTask {
	return &StateCleanupTask{
		StateService: stateService,
		Cron:         cron.New(cron.WithSeconds()),
		logger:       logger,
	}
}

// Start 启动定时任务
func (t *StateCleanupTask) Start() {
	// 每小时清理一次
	_, err := t.Cron.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := t.StateService.SweepExpired(ctx); err != nil {
			t.logger.Errorw("[Cron] 过期 state 清理失败", "err", err)
		}
	})
	if err != nil {
		t.logger.Fatalf("无法启动 state 清理任务: %v", err)
	}

	t.Cron.Start()
	t.logger.Info("state 清理任务已启动 (每小时执行一次)")
}

// Stop 停止定时任务
func (t *StateCleanupTask) Stop() {
	t.Cron.Stop()
}
