package router

import (
	"github.com/gin-gonic/gin"

	"shopify_insta_v1/internal/controller"
	"shopify_insta_v1/internal/middleware"
	"shopify_insta_v1/internal/repository"
)

// Controllers 控制器集合
type Controllers struct {
	ShopifyAuth   *controller.ShopifyAuthController
	InstagramAuth *controller.InstagramAuthController
	Dashboard     *controller.DashboardController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers, shopRepo repository.ShopRepository) *gin.Engine {
	r := gin.Default()

	// Shopify 安装授权组
	shopifyGroup := r.Group("/shopify")
	{
		// GET /shopify/install
		shopifyGroup.GET("/install", ctls.ShopifyAuth.Install)
		// GET /shopify/callback
		shopifyGroup.GET("/callback", ctls.ShopifyAuth.Callback)
		// POST /shopify/uninstall (webhook，签名在 handler 内对原始 body 校验)
		shopifyGroup.POST("/uninstall", ctls.ShopifyAuth.Uninstall)
	}

	// Instagram 连接授权组
	instagramGroup := r.Group("/instagram")
	{
		instagramGroup.GET("/connect", ctls.InstagramAuth.Connect)
		instagramGroup.GET("/callback", ctls.InstagramAuth.Callback)
		instagramGroup.GET("/disconnect", ctls.InstagramAuth.Disconnect)
	}

	// Dashboard 组（店铺上下文中间件保护）
	dashboardGroup := r.Group("/dashboard", middleware.ShopAuth(shopRepo))
	{
		dashboardGroup.GET("", ctls.Dashboard.Index)
		dashboardGroup.GET("/media", ctls.Dashboard.Media)
		dashboardGroup.POST("/sync-media", ctls.Dashboard.SyncMedia)
		dashboardGroup.POST("/refresh-token", ctls.Dashboard.RefreshToken)
	}

	return r
}
