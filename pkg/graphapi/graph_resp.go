package graphapi

// ==========================================
// DTO: 用于接收 Facebook Graph API 返回的原始 JSON 数据
// ==========================================

// TokenResp OAuth token 响应（短效换取、长效升级、刷新共用）
// GET /{version}/oauth/access_token
type TokenResp struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	Error       *GraphError `json:"error,omitempty"`
}

// GraphError Graph API 通用错误体
type GraphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// PagesResp 用户名下 Facebook 主页列表
// GET /{version}/me/accounts?fields=id,name,instagram_business_account
type PagesResp struct {
	Data   []PageEntry `json:"data"`
	Paging Paging      `json:"paging"`
}

// PageEntry 单个主页；未绑定 IG 企业账号时 InstagramBusinessAccount 为 nil
type PageEntry struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	InstagramBusinessAccount *IGRef `json:"instagram_business_account,omitempty"`
}

// IGRef 主页上挂的 IG 企业账号引用
type IGRef struct {
	ID string `json:"id"`
}

// IGAccount IG 企业账号公开资料
// GET /{version}/{ig_id}?fields=id,username,profile_picture_url,followers_count,media_count
type IGAccount struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    int64  `json:"followers_count"`
	MediaCount        int64  `json:"media_count"`

	// 归属主页信息，列举时回填
	PageID   string `json:"page_id,omitempty"`
	PageName string `json:"page_name,omitempty"`
}

// MediaListResp 媒体列表页
// GET /{version}/{ig_id}/media
type MediaListResp struct {
	Data   []MediaEntry `json:"data"`
	Paging Paging       `json:"paging"`
}

// MediaEntry 单条帖子
type MediaEntry struct {
	ID            string `json:"id"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	Permalink     string `json:"permalink"`
	Caption       string `json:"caption"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
	Timestamp     string `json:"timestamp"`
}

// Paging 游标分页；After 为空表示没有后续页
type Paging struct {
	Cursors Cursors `json:"cursors"`
	Next    string  `json:"next,omitempty"`
}

// Cursors 游标对
type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}
