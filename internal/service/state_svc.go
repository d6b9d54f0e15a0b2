package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/pkg/utils"
)

// state 随机串长度，64 字符足以防猜测
const stateTokenLength = 64

// StateService 一次性防 CSRF state 的签发与核销
type StateService struct {
	StateRepo repository.OAuthStateRepository
	logger    *zap.SugaredLogger
}

// NewStateService 工厂方法
func NewStateService(stateRepo repository.OAuthStateRepository, logger *zap.SugaredLogger) *StateService {
	return &StateService{
		StateRepo: stateRepo,
		logger:    logger,
	}
}

// Issue 为 provider 签发一个 state，metadata 随授权往返透传
// 过期时间固定为 now + 10 分钟
func (s *StateService) Issue(ctx context.Context, provider string, metadata map[string]interface{}) (string, error) {
	token, err := utils.GenerateRandomString(stateTokenLength)
	if err != nil {
		return "", err
	}

	row := &model.OAuthState{
		State:     token,
		Provider:  provider,
		Metadata:  datatypes.JSONMap(metadata),
		ExpiresAt: time.Now().Add(model.StateTTL),
	}
	if err := s.StateRepo.Create(ctx, row); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyAndConsume 核销 state：命中即删行并返回 metadata
// 未命中返回 (nil, nil)，调用方必须按硬性鉴权失败处理，不得重试
func (s *StateService) VerifyAndConsume(ctx context.Context, state, provider string) (*model.OAuthState, error) {
	return s.StateRepo.ConsumeValid(ctx, state, provider)
}

// SweepExpired 清理过期 state，返回删除行数
func (s *StateService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.StateRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Infow("已清理过期 OAuth state", "count", count)
	}
	return count, nil
}
