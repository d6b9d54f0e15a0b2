package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopify_insta_v1/internal/model"
)

// ==================== 接口定义 ====================

// ShopRepository 店铺仓储接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	Save(ctx context.Context, shop *model.Shop) error
	GetByDomain(ctx context.Context, domain string) (*model.Shop, error)
	GetByDomainWithAccount(ctx context.Context, domain string) (*model.Shop, error)
	UpdateActive(ctx context.Context, id int64, active bool) error
	ListActive(ctx context.Context) ([]model.Shop, error)
}

// ==================== 仓储实现 ====================

type shopRepo struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓储
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *shopRepo) Save(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

// GetByDomain 按域名查店铺；不存在返回 (nil, nil)，域名缺失是业务负结果而非错误
func (r *shopRepo) GetByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).Where("shop_domain = ?", domain).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) GetByDomainWithAccount(ctx context.Context, domain string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Preload("InstagramAccount").
		Where("shop_domain = ?", domain).
		First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// UpdateActive 翻转安装状态（卸载=软停用，重装可恢复）
func (r *shopRepo) UpdateActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Shop{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *shopRepo) ListActive(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&shops).Error
	return shops, err
}
