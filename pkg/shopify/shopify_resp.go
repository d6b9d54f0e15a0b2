package shopify

// ==========================================
// DTO: 用于接收 Shopify Admin API 返回的原始 JSON 数据
// ==========================================

// TokenResp 授权码换 Token 响应
// POST /admin/oauth/access_token
type TokenResp struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ShopResp 店铺详情响应外层
// GET /admin/api/{version}/shop.json
// 内层字段集不受契约保证，按 map 透传入库
type ShopResp struct {
	Shop map[string]interface{} `json:"shop"`
}

// ErrorResp Shopify 通用错误响应
type ErrorResp struct {
	Errors interface{} `json:"errors"`
}
