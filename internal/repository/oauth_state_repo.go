package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopify_insta_v1/internal/model"
)

// ==================== 接口定义 ====================

// OAuthStateRepository 一次性 state 仓储接口
type OAuthStateRepository interface {
	Create(ctx context.Context, state *model.OAuthState) error

	// ConsumeValid 查出 (state, provider) 下未过期的记录并删除之
	// 并发竞争下以删除的 RowsAffected 为准，保证恰好一个调用方成功
	// 未命中（token 错误/provider 不符/已过期/已消费）返回 (nil, nil)
	ConsumeValid(ctx context.Context, state, provider string) (*model.OAuthState, error)

	// DeleteExpired 清理过期行，纯空间回收，无正确性依赖
	DeleteExpired(ctx context.Context) (int64, error)
}

// ==================== 仓储实现 ====================

type oauthStateRepo struct {
	db *gorm.DB
}

// NewOAuthStateRepository 创建 state 仓储
func NewOAuthStateRepository(db *gorm.DB) OAuthStateRepository {
	return &oauthStateRepo{db: db}
}

func (r *oauthStateRepo) Create(ctx context.Context, state *model.OAuthState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

func (r *oauthStateRepo) ConsumeValid(ctx context.Context, state, provider string) (*model.OAuthState, error) {
	var row model.OAuthState
	err := r.db.WithContext(ctx).
		Where("state = ? AND provider = ? AND expires_at > ?", state, provider, time.Now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// 按主键删除，RowsAffected==0 说明已被并发消费，判负
	res := r.db.WithContext(ctx).Delete(&model.OAuthState{}, row.ID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *oauthStateRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.OAuthState{})
	return res.RowsAffected, res.Error
}
