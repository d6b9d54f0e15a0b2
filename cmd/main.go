package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopify_insta_v1/internal/config"
	"shopify_insta_v1/internal/controller"
	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/router"
	"shopify_insta_v1/internal/service"
	"shopify_insta_v1/internal/task"
	"shopify_insta_v1/pkg/database"
)

func main() {
	// 1. 加载环境变量与配置
	_ = godotenv.Load()
	cfg := config.Load()
	gin.SetMode(cfg.Server.GinMode)

	// 2. 初始化日志
	logger := initLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	// 3. 初始化数据库
	db := initDatabase(cfg, sugar)

	// 4. 初始化依赖
	deps := initDependencies(db, cfg, sugar)

	// 5. 启动定时任务
	tasks := initTasks(deps, sugar)
	defer stopTasks(tasks)

	// 6. 初始化路由
	r := router.SetupRouter(deps.Controllers, deps.Repos.Shop)

	// 7. 启动服务
	startServer(r, cfg, sugar)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Shop             repository.ShopRepository
	OAuthState       repository.OAuthStateRepository
	InstagramAccount repository.InstagramAccountRepository
	InstagramMedia   repository.InstagramMediaRepository
}

// Services 服务集合
type Services struct {
	State     *service.StateService
	Shopify   *service.ShopifyService
	Instagram *service.InstagramService
}

// Tasks 后台任务集合
type Tasks struct {
	Token        *task.TokenTask
	MediaSync    *task.MediaSyncTask
	StateCleanup *task.StateCleanupTask
}

// ==================== 初始化函数 ====================

// initLogger 初始化 zap 日志
func initLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	var err error
	if cfg.Server.GinMode == gin.ReleaseMode {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	return logger
}

// initDatabase 初始化数据库并迁移表结构
func initDatabase(cfg *config.Config, sugar *zap.SugaredLogger) *gorm.DB {
	return database.InitDB(
		database.Options{
			DSN:             cfg.Database.DSN,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogSQL:          cfg.Database.LogSQL,
		},
		sugar,
		&model.Shop{},
		&model.OAuthState{},
		&model.InstagramAccount{},
		&model.InstagramMedia{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB, cfg *config.Config, sugar *zap.SugaredLogger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Shop:             repository.NewShopRepository(db),
		OAuthState:       repository.NewOAuthStateRepository(db),
		InstagramAccount: repository.NewInstagramAccountRepository(db),
		InstagramMedia:   repository.NewInstagramMediaRepository(db),
	}

	// -------- 出站 HTTP 客户端 --------
	// 超时和重试策略集中在这里，上游调用不各自为政
	client := resty.New().
		SetTimeout(cfg.HTTP.Timeout).
		SetRetryCount(cfg.HTTP.RetryCount)

	// -------- 业务服务 --------
	services := &Services{
		State:     service.NewStateService(repos.OAuthState, sugar),
		Shopify:   service.NewShopifyService(repos.Shop, cfg.Shopify, client, sugar),
		Instagram: service.NewInstagramService(repos.InstagramAccount, repos.InstagramMedia, cfg.Instagram, client, sugar),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		ShopifyAuth:   controller.NewShopifyAuthController(services.Shopify, services.State),
		InstagramAuth: controller.NewInstagramAuthController(services.Instagram, services.State, repos.Shop),
		Dashboard:     controller.NewDashboardController(services.Instagram, repos.InstagramMedia, sugar),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies, sugar *zap.SugaredLogger) *Tasks {
	tasks := &Tasks{
		Token:        task.NewTokenTask(deps.Repos.InstagramAccount, deps.Services.Instagram, sugar),
		MediaSync:    task.NewMediaSyncTask(deps.Repos.InstagramAccount, deps.Services.Instagram, sugar),
		StateCleanup: task.NewStateCleanupTask(deps.Services.State, sugar),
	}

	tasks.Token.Start()
	tasks.MediaSync.Start()
	tasks.StateCleanup.Start()

	sugar.Info("定时任务已启动")
	return tasks
}

// stopTasks 停止定时任务
func stopTasks(tasks *Tasks) {
	tasks.Token.Stop()
	tasks.MediaSync.Stop()
	tasks.StateCleanup.Stop()
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, cfg *config.Config, sugar *zap.SugaredLogger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		sugar.Infof("服务启动在 :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("服务强制关闭: %v", err)
	}

	sugar.Info("服务已退出")
}
