package controller

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/service"
)

// ShopifyAuthController Shopify 安装授权控制器
type ShopifyAuthController struct {
	shopifyService *service.ShopifyService
	stateService   *service.StateService
}

// NewShopifyAuthController 创建控制器
func NewShopifyAuthController(shopifySvc *service.ShopifyService, stateSvc *service.StateService) *ShopifyAuthController {
	return &ShopifyAuthController{
		shopifyService: shopifySvc,
		stateService:   stateSvc,
	}
}

// Install
// @Summary 发起 Shopify 安装授权
// @Description 校验店铺域名，签发 state 后 302 跳转到 Shopify 授权页
// @Tags Shopify (安装授权)
// @Param shop query string true "店铺域名，形如 your-store.myshopify.com"
// @Success 302 {string} string "跳转授权页"
// @Failure 400 {object} map[string]string "域名缺失/格式非法"
// @Router /shopify/install [get]
func (ctrl *ShopifyAuthController) Install(c *gin.Context) {
	shopDomain := c.Query("shop")
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Shop domain is required. Use format: ?shop=your-store.myshopify.com",
		})
		return
	}

	// 非法域名在任何网络/状态写入之前拒绝
	if !ctrl.shopifyService.IsValidShopDomain(shopDomain) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid shop domain format. Use format: your-store.myshopify.com",
		})
		return
	}

	state, err := ctrl.stateService.Issue(c.Request.Context(), model.ProviderShopify, map[string]interface{}{
		"shop_domain": shopDomain,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "签发 state 失败", "detail": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, ctrl.shopifyService.BuildInstallURL(shopDomain, state))
}

// Callback
// @Summary Shopify 授权回调
// @Description 校验 HMAC 与 state，授权码换 Token 并落库，成功后跳转 dashboard
// @Tags Shopify (安装授权)
// @Param shop query string true "店铺域名"
// @Param code query string true "授权码"
// @Param state query string true "防 CSRF state"
// @Param hmac query string true "参数签名"
// @Success 302 {string} string "跳转 dashboard"
// @Failure 400 {string} string "签名/state/域名校验失败"
// @Router /shopify/callback [get]
func (ctrl *ShopifyAuthController) Callback(c *gin.Context) {
	// 取全部查询参数参与签名校验
	params := map[string]string{}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	// 1. HMAC 校验，失败是硬性鉴权失败
	if !ctrl.shopifyService.VerifyHMAC(params) {
		c.String(http.StatusBadRequest, "Invalid HMAC signature.")
		return
	}

	shopDomain := c.Query("shop")
	code := c.Query("code")
	state := c.Query("state")

	// 2. state 单次核销
	oauthState, err := ctrl.stateService.VerifyAndConsume(c.Request.Context(), state, model.ProviderShopify)
	if err != nil {
		c.String(http.StatusInternalServerError, "State verification failed.")
		return
	}
	if oauthState == nil {
		c.String(http.StatusBadRequest, "Invalid or expired state token.")
		return
	}

	// 3. 回调域名必须与 state 携带的域名一致
	if oauthState.ShopDomain() != shopDomain {
		c.String(http.StatusBadRequest, "Shop domain mismatch.")
		return
	}

	// 4. 授权码换 Token（不重试，失败直接反馈）
	accessToken, err := ctrl.shopifyService.ExchangeCodeForToken(c.Request.Context(), shopDomain, code)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to obtain access token.")
		return
	}

	// 5. 建店/轮换凭证
	if _, err := ctrl.shopifyService.CreateOrUpdateShop(c.Request.Context(), shopDomain, accessToken); err != nil {
		c.String(http.StatusInternalServerError, "Failed to save shop.")
		return
	}

	c.Redirect(http.StatusFound, "/dashboard?shop="+url.QueryEscape(shopDomain)+"&success="+url.QueryEscape("Shop installed successfully!"))
}

// Uninstall
// @Summary Shopify 卸载 webhook
// @Description 对原始 body 校验 HMAC 后软停用店铺；缺头 400，签名不符 401
// @Tags Shopify (安装授权)
// @Success 200 {string} string "空 body"
// @Failure 400 {string} string "缺少店铺域名头"
// @Failure 401 {string} string "签名不符"
// @Router /shopify/uninstall [post]
func (ctrl *ShopifyAuthController) Uninstall(c *gin.Context) {
	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	if shopDomain == "" {
		c.String(http.StatusBadRequest, "Shop domain header missing.")
		return
	}

	rawBody, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Failed to read request body.")
		return
	}

	hmacHeader := c.GetHeader("X-Shopify-Hmac-Sha256")
	if !ctrl.shopifyService.VerifyWebhook(rawBody, hmacHeader) {
		c.String(http.StatusUnauthorized, "Invalid HMAC signature.")
		return
	}

	if _, err := ctrl.shopifyService.Uninstall(c.Request.Context(), shopDomain); err != nil {
		c.String(http.StatusInternalServerError, "Failed to deactivate shop.")
		return
	}

	c.String(http.StatusOK, "")
}
