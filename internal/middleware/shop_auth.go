package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shopify_insta_v1/internal/repository"
)

// ShopContextKey 中间件写入 gin context 的店铺键
const ShopContextKey = "shop"

// ShopAuth 店铺上下文中间件
// 从 ?shop= 解析店铺域名，校验存在且处于激活状态；
// 缺失/未知/停用一律重定向回安装页并携带提示
func ShopAuth(shopRepo repository.ShopRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopDomain := c.Query("shop")
		if shopDomain == "" {
			redirectInstall(c, "Shop domain is required. Please install the app first.")
			return
		}

		shop, err := shopRepo.GetByDomain(c.Request.Context(), shopDomain)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "查询店铺出错"})
			return
		}
		if shop == nil {
			redirectInstall(c, "Shop not found. Please install the app first.")
			return
		}
		if !shop.IsActive {
			redirectInstall(c, "Shop is not active. Please reinstall the app.")
			return
		}

		c.Set(ShopContextKey, shop)
		c.Next()
	}
}

func redirectInstall(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, "/shopify/install?error="+url.QueryEscape(msg))
	c.Abort()
}
