package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopify_insta_v1/internal/model"
)

// ==================== 接口定义 ====================

// MediaFilter 媒体列表过滤条件
type MediaFilter struct {
	MediaType string // 空表示不筛选
	Page      int
	PageSize  int
}

// InstagramMediaRepository 媒体缓存仓储接口
type InstagramMediaRepository interface {
	// Upsert 以 ig_media_id 为键幂等写入
	// 更新路径只刷新 media_url/caption/likes_count/comments_count，
	// 保留首次写入的 media_type 与 posted_at
	Upsert(ctx context.Context, media *model.InstagramMedia) (*model.InstagramMedia, error)

	ListByAccount(ctx context.Context, accountID int64, filter MediaFilter) ([]model.InstagramMedia, int64, error)
	ListRecent(ctx context.Context, accountID int64, limit int) ([]model.InstagramMedia, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
}

// ==================== 仓储实现 ====================

type instagramMediaRepo struct {
	db *gorm.DB
}

// NewInstagramMediaRepository 创建媒体缓存仓储
func NewInstagramMediaRepository(db *gorm.DB) InstagramMediaRepository {
	return &instagramMediaRepo{db: db}
}

func (r *instagramMediaRepo) Upsert(ctx context.Context, media *model.InstagramMedia) (*model.InstagramMedia, error) {
	// 冲突时只刷新可变字段，media_type/posted_at 保留首次写入值；
	// 数据库级 upsert，并发同步同键也不会报唯一索引冲突
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ig_media_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"media_url", "caption", "likes_count", "comments_count", "updated_at"}),
		}).
		Create(media).Error
	if err != nil {
		return nil, err
	}

	// 冲突路径不回填主键，按唯一键读回当前行
	var row model.InstagramMedia
	if err := r.db.WithContext(ctx).Where("ig_media_id = ?", media.IGMediaID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *instagramMediaRepo) ListByAccount(ctx context.Context, accountID int64, filter MediaFilter) ([]model.InstagramMedia, int64, error) {
	var items []model.InstagramMedia
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.InstagramMedia{}).
		Where("instagram_account_id = ?", accountID)

	if filter.MediaType != "" {
		query = query.Where("media_type = ?", filter.MediaType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 24
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("posted_at DESC").Limit(filter.PageSize).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *instagramMediaRepo) ListRecent(ctx context.Context, accountID int64, limit int) ([]model.InstagramMedia, error) {
	var items []model.InstagramMedia
	err := r.db.WithContext(ctx).
		Where("instagram_account_id = ?", accountID).
		Order("posted_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *instagramMediaRepo) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.InstagramMedia{}).
		Where("instagram_account_id = ?", accountID).
		Count(&count).Error
	return count, err
}
