package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopify_insta_v1/internal/model"
)

// ==================== 接口定义 ====================

// InstagramAccountRepository 社媒账号仓储接口
type InstagramAccountRepository interface {
	// Upsert 以 (shop_id, ig_business_account_id) 为键写入或覆盖
	// 唯一写入路径，回调/刷新之外不允许改动凭证
	Upsert(ctx context.Context, account *model.InstagramAccount) error

	GetByShopID(ctx context.Context, shopID int64) (*model.InstagramAccount, error)
	GetByID(ctx context.Context, id int64) (*model.InstagramAccount, error)
	ListConnected(ctx context.Context) ([]model.InstagramAccount, error)
	ListExpiringWithin(ctx context.Context, days int) ([]model.InstagramAccount, error)
	UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error

	// Delete 硬删除账号及其全部媒体缓存（断开连接）
	Delete(ctx context.Context, id int64) error
}

// ==================== 仓储实现 ====================

type instagramAccountRepo struct {
	db *gorm.DB
}

// NewInstagramAccountRepository 创建社媒账号仓储
func NewInstagramAccountRepository(db *gorm.DB) InstagramAccountRepository {
	return &instagramAccountRepo{db: db}
}

func (r *instagramAccountRepo) Upsert(ctx context.Context, account *model.InstagramAccount) error {
	var existing model.InstagramAccount
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND ig_business_account_id = ?", account.ShopID, account.IGBusinessAccountID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(account).Error
	}
	if err != nil {
		return err
	}

	existing.AccessToken = account.AccessToken
	existing.TokenExpiresAt = account.TokenExpiresAt
	existing.AccountData = account.AccountData
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*account = existing
	return nil
}

func (r *instagramAccountRepo) GetByShopID(ctx context.Context, shopID int64) (*model.InstagramAccount, error) {
	var account model.InstagramAccount
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *instagramAccountRepo) GetByID(ctx context.Context, id int64) (*model.InstagramAccount, error) {
	var account model.InstagramAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *instagramAccountRepo) ListConnected(ctx context.Context) ([]model.InstagramAccount, error) {
	var accounts []model.InstagramAccount
	err := r.db.WithContext(ctx).Find(&accounts).Error
	return accounts, err
}

// ListExpiringWithin 查凭证将在 days 天内过期（含已过期）的账号，供保活任务刷新
func (r *instagramAccountRepo) ListExpiringWithin(ctx context.Context, days int) ([]model.InstagramAccount, error) {
	var accounts []model.InstagramAccount
	deadline := time.Now().AddDate(0, 0, days)
	err := r.db.WithContext(ctx).
		Where("token_expires_at <= ?", deadline).
		Find(&accounts).Error
	return accounts, err
}

func (r *instagramAccountRepo) UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.InstagramAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"token_expires_at": expiresAt,
		}).Error
}

// Delete 账号与媒体在同一事务内删除，不依赖数据库级联
func (r *instagramAccountRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("instagram_account_id = ?", id).Delete(&model.InstagramMedia{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.InstagramAccount{}, id).Error
	})
}
