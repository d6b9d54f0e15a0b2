package controller

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/service"
)

// InstagramAuthController Instagram 连接授权控制器
type InstagramAuthController struct {
	instagramService *service.InstagramService
	stateService     *service.StateService
	shopRepo         repository.ShopRepository
}

// NewInstagramAuthController 创建控制器
func NewInstagramAuthController(igSvc *service.InstagramService, stateSvc *service.StateService, shopRepo repository.ShopRepository) *InstagramAuthController {
	return &InstagramAuthController{
		instagramService: igSvc,
		stateService:     stateSvc,
		shopRepo:         shopRepo,
	}
}

// redirectDashboard 人机流程的统一出口：302 + 短消息
func redirectDashboard(c *gin.Context, shopDomain, key, msg string) {
	c.Redirect(http.StatusFound,
		"/dashboard?shop="+url.QueryEscape(shopDomain)+"&"+key+"="+url.QueryEscape(msg))
}

// Connect
// @Summary 发起 Instagram 连接授权
// @Description 店铺必须已安装且激活；签发 state 后 302 跳转 Facebook 授权对话框
// @Tags Instagram (连接授权)
// @Param shop query string true "店铺域名"
// @Success 302 {string} string "跳转授权页"
// @Router /instagram/connect [get]
func (ctrl *InstagramAuthController) Connect(c *gin.Context) {
	shopDomain := c.Query("shop")
	if shopDomain == "" {
		c.Redirect(http.StatusFound, "/shopify/install?error="+url.QueryEscape("Shop domain is required."))
		return
	}

	shop, err := ctrl.shopRepo.GetByDomain(c.Request.Context(), shopDomain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询店铺出错"})
		return
	}
	if shop == nil || !shop.IsActive {
		c.Redirect(http.StatusFound, "/shopify/install?error="+url.QueryEscape("Shop not found or not active."))
		return
	}

	state, err := ctrl.stateService.Issue(c.Request.Context(), model.ProviderInstagram, map[string]interface{}{
		"shop_domain": shopDomain,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "签发 state 失败", "detail": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, ctrl.instagramService.BuildAuthURL(state))
}

// Callback
// @Summary Instagram 授权回调
// @Description 核销 state 后执行 code→短效→长效两段换取，列举可绑定账号并绑定第一个
// @Tags Instagram (连接授权)
// @Param code query string true "授权码"
// @Param state query string true "防 CSRF state"
// @Param error query string false "用户拒绝时为 access_denied"
// @Success 302 {string} string "跳转 dashboard"
// @Failure 400 {string} string "state 校验失败"
// @Router /instagram/callback [get]
func (ctrl *InstagramAuthController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	// 用户拒绝授权：带提示回 dashboard，不算系统错误
	if errParam == "access_denied" {
		redirectDashboard(c, "", "error", "Instagram access was denied.")
		return
	}

	oauthState, err := ctrl.stateService.VerifyAndConsume(c.Request.Context(), state, model.ProviderInstagram)
	if err != nil {
		c.String(http.StatusInternalServerError, "State verification failed.")
		return
	}
	if oauthState == nil {
		c.String(http.StatusBadRequest, "Invalid or expired state token.")
		return
	}

	shopDomain := oauthState.ShopDomain()
	shop, err := ctrl.shopRepo.GetByDomain(c.Request.Context(), shopDomain)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to load shop.")
		return
	}
	if shop == nil {
		c.String(http.StatusNotFound, "Shop not found.")
		return
	}

	// 两段换取，任一失败即放弃，不落任何部分状态
	shortToken, err := ctrl.instagramService.ExchangeCodeForShortToken(c.Request.Context(), code)
	if err != nil {
		redirectDashboard(c, shopDomain, "error", "Failed to obtain access token.")
		return
	}

	longToken, err := ctrl.instagramService.UpgradeToLongToken(c.Request.Context(), shortToken)
	if err != nil {
		redirectDashboard(c, shopDomain, "error", "Failed to obtain long-lived token.")
		return
	}

	accounts, err := ctrl.instagramService.ListLinkedAccounts(c.Request.Context(), longToken.AccessToken)
	if err != nil {
		redirectDashboard(c, shopDomain, "error", "Failed to load Instagram accounts.")
		return
	}
	// "没有可绑定账号"与传输失败分开提示
	if len(accounts) == 0 {
		redirectDashboard(c, shopDomain, "error",
			"No Instagram business accounts found. Please ensure you have an Instagram Professional account connected to your Facebook page.")
		return
	}

	// 多账号时只绑定第一个（first-account-wins）
	if _, err := ctrl.instagramService.UpsertAccount(c.Request.Context(), shop, accounts[0], longToken); err != nil {
		redirectDashboard(c, shopDomain, "error", "Failed to save Instagram account.")
		return
	}

	redirectDashboard(c, shopDomain, "success", "Instagram account connected successfully!")
}

// Disconnect
// @Summary 断开 Instagram 账号
// @Description 硬删除绑定账号及其媒体缓存
// @Tags Instagram (连接授权)
// @Param shop query string true "店铺域名"
// @Success 302 {string} string "跳转 dashboard"
// @Router /instagram/disconnect [get]
func (ctrl *InstagramAuthController) Disconnect(c *gin.Context) {
	shopDomain := c.Query("shop")
	if shopDomain == "" {
		c.Redirect(http.StatusFound, "/shopify/install?error="+url.QueryEscape("Shop domain is required."))
		return
	}

	shop, err := ctrl.shopRepo.GetByDomain(c.Request.Context(), shopDomain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询店铺出错"})
		return
	}
	if shop == nil {
		c.Redirect(http.StatusFound, "/shopify/install?error="+url.QueryEscape("Shop not found."))
		return
	}

	account, err := ctrl.instagramService.AccountRepo.GetByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询账号出错"})
		return
	}
	if account == nil {
		redirectDashboard(c, shopDomain, "error", "No Instagram account connected.")
		return
	}

	if err := ctrl.instagramService.Disconnect(c.Request.Context(), account); err != nil {
		redirectDashboard(c, shopDomain, "error", "Failed to disconnect Instagram account.")
		return
	}

	redirectDashboard(c, shopDomain, "success", "Instagram account disconnected successfully.")
}
