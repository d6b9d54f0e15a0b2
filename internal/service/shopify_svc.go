package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"shopify_insta_v1/internal/config"
	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/pkg/shopify"
)

// 店铺域名格式：子域 + .myshopify.com，子域首字符必须为字母数字，不允许下划线
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ShopifyService Shopify 安装授权 / 签名校验 / 店铺生命周期
type ShopifyService struct {
	ShopRepo repository.ShopRepository

	cfg    config.ShopifyConfig
	client *resty.Client
	logger *zap.SugaredLogger
}

// NewShopifyService 工厂方法
// client 为统一出站客户端（显式超时，默认不重试）
func NewShopifyService(shopRepo repository.ShopRepository, cfg config.ShopifyConfig, client *resty.Client, logger *zap.SugaredLogger) *ShopifyService {
	return &ShopifyService{
		ShopRepo: shopRepo,
		cfg:      cfg,
		client:   client,
		logger:   logger,
	}
}

// ==================== 域名与签名校验 ====================

// IsValidShopDomain 校验店铺域名格式，入口处先行拒绝非法输入
func (s *ShopifyService) IsValidShopDomain(domain string) bool {
	return shopDomainPattern.MatchString(domain)
}

// VerifyHMAC 校验回调查询参数签名
// 约定：剔除 hmac 参数 → 剩余参数按 key 排序编码为 query string →
// HMAC-SHA256(hex) → 恒定时间比较。任何不符都是判负，不抛错
func (s *ShopifyService) VerifyHMAC(params map[string]string) bool {
	supplied, ok := params["hmac"]
	if !ok || supplied == "" {
		return false
	}

	values := url.Values{}
	for k, v := range params {
		if k == "hmac" {
			continue
		}
		values.Set(k, v)
	}

	// url.Values.Encode 本身按 key 排序，即 Shopify 签名的规范形式
	mac := hmac.New(sha256.New, []byte(s.cfg.APISecret))
	mac.Write([]byte(values.Encode()))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(supplied), []byte(expected))
}

// VerifyWebhook 校验卸载 webhook 签名
// 与回调签名不同：对未解析的原始 body 计算 HMAC-SHA256 并 base64 编码
// 这一不对称是平台契约，必须原样保留
func (s *ShopifyService) VerifyWebhook(rawBody []byte, headerSig string) bool {
	if headerSig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.APISecret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(headerSig), []byte(expected))
}

// ==================== OAuth 流程 ====================

// BuildInstallURL 拼接 Shopify 授权页地址，纯字符串构造，无网络调用
func (s *ShopifyService) BuildInstallURL(shopDomain, state string) string {
	query := url.Values{}
	query.Set("client_id", s.cfg.APIKey)
	query.Set("scope", s.cfg.Scopes)
	query.Set("redirect_uri", s.cfg.RedirectURI)
	query.Set("state", state)
	query.Set("response_type", "code")
	// 请求按用户授权
	query.Set("grant_options[]", "per-user")

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shopDomain, query.Encode())
}

// ExchangeCodeForToken 授权码换访问 Token
// 单次 POST，任何非 2xx 直接判失败，不重试，由调用方向用户反馈
func (s *ShopifyService) ExchangeCodeForToken(ctx context.Context, shopDomain, code string) (string, error) {
	endpoint := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     s.cfg.APIKey,
			"client_secret": s.cfg.APISecret,
			"code":          code,
		}).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("换取 Token 失败: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("shopify refused token exchange: status %d", resp.StatusCode())
	}

	var tokenResp shopify.TokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return "", fmt.Errorf("shopify token json decode failed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("shopify token response missing access_token")
	}
	return tokenResp.AccessToken, nil
}

// FetchShopData 拉取店铺详情（shop.json），失败返回 nil，不阻断安装
func (s *ShopifyService) FetchShopData(ctx context.Context, shopDomain, accessToken string) map[string]interface{} {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/shop.json", shopDomain, s.cfg.APIVersion)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", accessToken).
		Get(endpoint)
	if err != nil || !resp.IsSuccess() {
		s.logger.Warnw("拉取店铺详情失败", "shop_domain", shopDomain, "err", err)
		return nil
	}

	var shopResp shopify.ShopResp
	if err := json.Unmarshal(resp.Body(), &shopResp); err != nil {
		s.logger.Warnw("店铺详情解析失败", "shop_domain", shopDomain, "err", err)
		return nil
	}
	return shopResp.Shop
}

// CreateOrUpdateShop 安装回调的唯一店铺写入路径
// 首装建行；重装轮换凭证并重新激活，行不删除
func (s *ShopifyService) CreateOrUpdateShop(ctx context.Context, shopDomain, accessToken string) (*model.Shop, error) {
	shopData := s.FetchShopData(ctx, shopDomain, accessToken)

	shop, err := s.ShopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		shop = &model.Shop{ShopDomain: shopDomain}
	}

	shop.ShopifyToken = accessToken
	shop.ShopData = datatypes.JSONMap(shopData)
	shop.IsActive = true

	if err := s.ShopRepo.Save(ctx, shop); err != nil {
		return nil, fmt.Errorf("店铺入库失败: %w", err)
	}
	return shop, nil
}

// ==================== 生命周期 ====================

// Uninstall 卸载店铺（软停用，保留行，重装可恢复）
func (s *ShopifyService) Uninstall(ctx context.Context, shopDomain string) (bool, error) {
	shop, err := s.ShopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		return false, err
	}
	if shop == nil {
		return false, nil
	}
	if err := s.ShopRepo.UpdateActive(ctx, shop.ID, false); err != nil {
		return false, err
	}
	s.logger.Infow("店铺已停用", "shop_domain", shopDomain, "shop_id", shop.ID)
	return true, nil
}

// Activate 重新激活店铺
func (s *ShopifyService) Activate(ctx context.Context, shop *model.Shop) error {
	return s.ShopRepo.UpdateActive(ctx, shop.ID, true)
}
