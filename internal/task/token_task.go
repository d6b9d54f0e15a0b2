package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/service"
)

// TokenTask Instagram 长效凭证保活任务
// 周期扫描将在 7 天内过期的账号并刷新；失败不中断其他账号，
// 也不做内联重试，留待下一轮
type TokenTask struct {
	AccountRepo      repository.InstagramAccountRepository
	InstagramService *service.InstagramService
	Cron             *cron.Cron

	logger *zap.SugaredLogger

	// 控制并发刷新数量，尊重上游限流
	concurrencyLimit int
	sleepTime        time.Duration
	expiryWindowDays int
}

// NewTokenTask 工厂方法
func NewTokenTask(accountRepo repository.InstagramAccountRepository, igService *service.InstagramService, logger *zap.SugaredLogger) *TokenTask {
	return &TokenTask{
		AccountRepo:      accountRepo,
		InstagramService: igService,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		logger:           logger,
		concurrencyLimit: 10,
		sleepTime:        100 * time.Millisecond, // 每个协程启动间隔，平滑波峰
		expiryWindowDays: 7,
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.logger.Info("[Task] 服务启动，正在执行首次凭证检查...")
		t.refreshJob(ctx)
	}()

	// 每 6 小时检查一次
	_, err := t.Cron.AddFunc("0 0 */6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	})
	if err != nil {
		t.logger.Fatalf("无法启动凭证保活任务: %v", err)
	}

	t.Cron.Start()
	t.logger.Info("凭证保活任务已启动 (每6小时检查一次)")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	t.Cron.Stop()
}

// refreshJob 刷新所有临期账号
func (t *TokenTask) refreshJob(ctx context.Context) {
	accounts, err := t.AccountRepo.ListExpiringWithin(ctx, t.expiryWindowDays)
	if err != nil {
		t.logger.Errorw("[Cron] 临期账号查询失败", "err", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	// 信号量限流
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	t.logger.Infow("[Cron] 开始刷新临期凭证", "count", len(accounts), "concurrency", t.concurrencyLimit)

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			t.logger.Warn("[Cron] 凭证刷新任务超时停止")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(a model.InstagramAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.InstagramService.RefreshAccountToken(ctx, &a); err != nil {
				// 日志仅记录，不中断其他协程；下一轮周期自然重试
				t.logger.Errorw("[Cron] 凭证刷新失败",
					"shop_id", a.ShopID,
					"instagram_account_id", a.ID,
					"err", err)
			}
		}(account)
	}

	wg.Wait()
	t.logger.Info("[Cron] 本轮凭证刷新任务完成")
}
