package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options 数据库连接与连接池参数，由进程配置装配
type Options struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// LogSQL 打开后打印全部 SQL，只在排查问题时启用
	LogSQL bool
}

// InitDB 建立连接、配置连接池并迁移表结构
// models: 需要自动建表/迁移的结构体指针
func InitDB(opts Options, log *zap.SugaredLogger, models ...interface{}) *gorm.DB {
	mode := gormlogger.Warn
	if opts.LogSQL {
		mode = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(mode),
	})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层 SQL DB 失败: %v", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	log.Infow("数据库连接成功",
		"max_idle_conns", opts.MaxIdleConns,
		"max_open_conns", opts.MaxOpenConns)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			log.Fatalf("自动建表出错: %v", err)
		}
	}

	return db
}
