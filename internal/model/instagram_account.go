package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultTokenTTL 平台未返回 expires_in 时的兜底有效期（约 60 天）
const DefaultTokenTTL = 5184000 * time.Second

// InstagramAccount 店铺绑定的 Instagram 企业账号
// 联合唯一键 (shop_id, ig_business_account_id)；当前策略每店铺一个账号
// 断开连接是硬删除（连同媒体缓存），因此不带软删除列
type InstagramAccount struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ShopID int64 `gorm:"index;uniqueIndex:idx_shop_ig_account;not null" json:"shop_id"`
	Shop   *Shop `gorm:"foreignKey:ShopID" json:"-"`

	// Instagram 平台侧账号 ID
	IGBusinessAccountID string `gorm:"size:64;uniqueIndex:idx_shop_ig_account;not null" json:"ig_business_account_id"`

	// 长效凭证，只能由回调/刷新流程写入；绝不对外输出
	AccessToken    string    `gorm:"size:512" json:"-"`
	TokenExpiresAt time.Time `gorm:"index" json:"token_expires_at"`

	// 账号资料快照 (username/followers_count/profile_picture_url 等)
	// 远端字段集不稳定，按 JSON 存储，仅在重新连接时刷新
	AccountData datatypes.JSONMap `gorm:"type:jsonb" json:"account_data"`

	// 关联媒体 (Has Many)
	Media []InstagramMedia `gorm:"foreignKey:InstagramAccountID" json:"media,omitempty"`
}

func (InstagramAccount) TableName() string {
	return "instagram_accounts"
}

// IsTokenExpired 凭证是否已过期
func (a *InstagramAccount) IsTokenExpired() bool {
	return !a.TokenExpiresAt.IsZero() && a.TokenExpiresAt.Before(time.Now())
}

// WillTokenExpireIn 凭证是否将在 days 天内过期
func (a *InstagramAccount) WillTokenExpireIn(days int) bool {
	if a.TokenExpiresAt.IsZero() {
		return false
	}
	return !a.TokenExpiresAt.After(time.Now().AddDate(0, 0, days))
}

// ==================== 资料 blob 访问器 ====================

// Username 账号用户名
func (a *InstagramAccount) Username() string {
	if a.AccountData == nil {
		return ""
	}
	if v, ok := a.AccountData["username"].(string); ok {
		return v
	}
	return ""
}

// ProfilePictureURL 头像地址
func (a *InstagramAccount) ProfilePictureURL() string {
	if a.AccountData == nil {
		return ""
	}
	if v, ok := a.AccountData["profile_picture_url"].(string); ok {
		return v
	}
	return ""
}

// FollowersCount 粉丝数
// JSON 反序列化后数字为 float64，这里统一收敛为 int64
func (a *InstagramAccount) FollowersCount() int64 {
	if a.AccountData == nil {
		return 0
	}
	switch v := a.AccountData["followers_count"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
