package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/service"
)

// MediaSyncTask 媒体缓存后台刷新任务
// 对所有已绑定账号执行有界同步，单账号失败不影响其他账号
type MediaSyncTask struct {
	AccountRepo      repository.InstagramAccountRepository
	InstagramService *service.InstagramService
	Cron             *cron.Cron

	logger *zap.SugaredLogger

	concurrencyLimit int
	sleepTime        time.Duration
}

// NewMediaSyncTask 工厂方法
func NewMediaSyncTask(accountRepo repository.InstagramAccountRepository, igService *service.InstagramService, logger *zap.SugaredLogger) *MediaSyncTask {
	return &MediaSyncTask{
		AccountRepo:      accountRepo,
		InstagramService: igService,
		Cron:             cron.New(cron.WithSeconds()),
		logger:           logger,
		concurrencyLimit: 5, // 媒体同步请求重，限得比凭证刷新更紧
		sleepTime:        200 * time.Millisecond,
	}
}

// Start 启动定时任务
func (t *MediaSyncTask) Start() {
	// 每 4 小时同步一次；启动时不立即执行，避免和凭证首检挤在一起
	_, err := t.Cron.AddFunc("0 0 */4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		t.syncJob(ctx)
	})
	if err != nil {
		t.logger.Fatalf("无法启动媒体同步任务: %v", err)
	}

	t.Cron.Start()
	t.logger.Info("媒体同步任务已启动 (每4小时执行一次)")
}

// Stop 停止定时任务
func (t *MediaSyncTask) Stop() {
	t.Cron.Stop()
}

// syncJob 对所有已绑定账号执行一轮同步
func (t *MediaSyncTask) syncJob(ctx context.Context) {
	runID := uuid.New().String() // 每轮一个 run id，方便日志串联
	accounts, err := t.AccountRepo.ListConnected(ctx)
	if err != nil {
		t.logger.Errorw("[Cron] 已绑定账号查询失败", "run_id", runID, "err", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	t.logger.Infow("[Cron] 开始媒体同步", "run_id", runID, "count", len(accounts))

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			t.logger.Warnw("[Cron] 媒体同步任务超时停止", "run_id", runID)
			return
		default:
		}

		// 凭证已过期的账号跳过，等保活任务先救回来
		if account.IsTokenExpired() {
			t.logger.Warnw("[Cron] 凭证已过期，跳过同步",
				"run_id", runID,
				"instagram_account_id", account.ID)
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(a model.InstagramAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			synced, err := t.InstagramService.SyncMedia(ctx, &a)
			if err != nil {
				t.logger.Errorw("[Cron] 媒体同步失败",
					"run_id", runID,
					"shop_id", a.ShopID,
					"instagram_account_id", a.ID,
					"err", err)
				return
			}
			t.logger.Infow("[Cron] 账号媒体同步完成",
				"run_id", runID,
				"instagram_account_id", a.ID,
				"synced", len(synced))
		}(account)
	}

	wg.Wait()
	t.logger.Infow("[Cron] 本轮媒体同步任务完成", "run_id", runID)
}
