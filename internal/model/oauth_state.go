package model

import (
	"time"

	"gorm.io/datatypes"
)

// Provider 常量（封闭枚举）
const (
	ProviderShopify   = "shopify"
	ProviderInstagram = "instagram"
)

// StateTTL state 的固定有效窗口，足够完成一次授权往返
const StateTTL = 10 * time.Minute

// OAuthState 防 CSRF 的一次性 state 记录
// 单次使用：verify-and-consume 成功即物理删除该行，过期/已消费的 state 永不二次接受
// 注意：不带软删除，消费即删行是正确性约束
type OAuthState struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	State    string `gorm:"size:128;uniqueIndex;not null" json:"state"`
	Provider string `gorm:"size:20;index;not null" json:"provider"`

	// 透传授权往返的上下文（shop_domain 等）
	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (OAuthState) TableName() string {
	return "oauth_states"
}

// ShopDomain 从 metadata 中取出往返携带的店铺域名
func (s *OAuthState) ShopDomain() string {
	if s.Metadata == nil {
		return ""
	}
	if v, ok := s.Metadata["shop_domain"].(string); ok {
		return v
	}
	return ""
}
