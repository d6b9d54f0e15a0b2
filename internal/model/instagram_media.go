package model

import (
	"time"
)

// 媒体类型常量（Graph API 的封闭枚举）
const (
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
)

// InstagramMedia 本地缓存的 Instagram 帖子
// 以平台侧 media id 为唯一键，同步 upsert 幂等：
// 更新路径只刷新互动计数与 caption，保留首次写入的类型与发布时间
// 随账号断开一起硬删除，不带软删除列
type InstagramMedia struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InstagramAccountID int64             `gorm:"index;not null" json:"instagram_account_id"`
	Account            *InstagramAccount `gorm:"foreignKey:InstagramAccountID" json:"-"`

	IGMediaID string `gorm:"size:64;uniqueIndex;not null" json:"ig_media_id"`

	MediaType string `gorm:"size:20;index" json:"media_type"`
	MediaURL  string `gorm:"size:1024" json:"media_url"`
	Caption   string `gorm:"type:text" json:"caption"`

	LikesCount    int `gorm:"default:0" json:"likes_count"`
	CommentsCount int `gorm:"default:0" json:"comments_count"`

	// 平台侧原始发布时间
	PostedAt time.Time `gorm:"index" json:"posted_at"`
}

func (InstagramMedia) TableName() string {
	return "instagram_media"
}
