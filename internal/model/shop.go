package model

import (
	"gorm.io/datatypes"
)

// Shop 店铺模型
// 一个 Shopify 店铺安装记录，shop_domain 为唯一身份，创建后不可变
type Shop struct {
	BaseModel

	// 1. 核心身份
	ShopDomain string `gorm:"size:255;uniqueIndex;not null" json:"shop_domain"`

	// 2. 平台凭证
	// 只能由 OAuth 回调成功后写入/轮换；绝不对外输出
	ShopifyToken string `gorm:"size:255" json:"-"`

	// 3. 店铺元数据
	// Shopify shop.json 返回的原始数据，字段集不受契约保证，按 JSON 存储
	ShopData datatypes.JSONMap `gorm:"type:jsonb" json:"shop_data"`

	// 4. 安装状态
	// 卸载 webhook 只做软停用，行保留，重装可恢复
	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// 5. 关联关系 (Has One)
	// 当前设计每个店铺最多绑定 1 个 Instagram 账号
	InstagramAccount *InstagramAccount `gorm:"foreignKey:ShopID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"instagram_account,omitempty"`
}

func (Shop) TableName() string {
	return "shops"
}

// ShopName 店铺名称（来自元数据 blob 的类型化访问器）
func (s *Shop) ShopName() string {
	if s.ShopData == nil {
		return ""
	}
	if v, ok := s.ShopData["name"].(string); ok {
		return v
	}
	return ""
}

// Email 店铺联系邮箱
func (s *Shop) Email() string {
	if s.ShopData == nil {
		return ""
	}
	if v, ok := s.ShopData["email"].(string); ok {
		return v
	}
	return ""
}
