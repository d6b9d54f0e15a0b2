package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopify_insta_v1/internal/middleware"
	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/service"
)

// DashboardController 店铺侧数据接口（机器可读，JSON 出入）
type DashboardController struct {
	instagramService *service.InstagramService
	mediaRepo        repository.InstagramMediaRepository
	logger           *zap.SugaredLogger
}

// NewDashboardController 创建控制器
func NewDashboardController(igSvc *service.InstagramService, mediaRepo repository.InstagramMediaRepository, logger *zap.SugaredLogger) *DashboardController {
	return &DashboardController{
		instagramService: igSvc,
		mediaRepo:        mediaRepo,
		logger:           logger,
	}
}

// contextShop 取中间件写入的店铺
func contextShop(c *gin.Context) *model.Shop {
	v, ok := c.Get(middleware.ShopContextKey)
	if !ok {
		return nil
	}
	shop, _ := v.(*model.Shop)
	return shop
}

// ==================== 序列化（白名单） ====================

// 凭证绝不进入任何对外表示；此处用显式白名单而非黑名单，
// 避免将来新增字段时被动泄露

func shopView(shop *model.Shop) gin.H {
	return gin.H{
		"shop_domain": shop.ShopDomain,
		"shop_name":   shop.ShopName(),
		"is_active":   shop.IsActive,
	}
}

func accountView(account *model.InstagramAccount) gin.H {
	return gin.H{
		"ig_business_account_id": account.IGBusinessAccountID,
		"username":               account.Username(),
		"profile_picture_url":    account.ProfilePictureURL(),
		"followers_count":        account.FollowersCount(),
		"token_expires_at":       account.TokenExpiresAt,
		"token_expired":          account.IsTokenExpired(),
	}
}

func mediaView(m *model.InstagramMedia) gin.H {
	return gin.H{
		"ig_media_id":    m.IGMediaID,
		"media_type":     m.MediaType,
		"media_url":      m.MediaURL,
		"caption":        m.Caption,
		"likes_count":    m.LikesCount,
		"comments_count": m.CommentsCount,
		"posted_at":      m.PostedAt,
	}
}

// ==================== Handler 实现 ====================

// Index
// @Summary 店铺概览
// @Description 店铺信息 + 绑定账号 + 最近 12 条媒体
// @Tags Dashboard
// @Param shop query string true "店铺域名"
// @Success 200 {object} map[string]interface{}
// @Router /dashboard [get]
func (ctrl *DashboardController) Index(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found."})
		return
	}

	resp := gin.H{"shop": shopView(shop)}

	account, err := ctrl.instagramService.AccountRepo.GetByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询账号出错"})
		return
	}
	if account != nil {
		resp["instagram_account"] = accountView(account)

		recent, err := ctrl.mediaRepo.ListRecent(c.Request.Context(), account.ID, 12)
		if err == nil {
			views := make([]gin.H, 0, len(recent))
			for i := range recent {
				views = append(views, mediaView(&recent[i]))
			}
			resp["recent_media"] = views
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Media
// @Summary 媒体缓存列表
// @Description 按类型筛选 + 分页
// @Tags Dashboard
// @Param shop query string true "店铺域名"
// @Param type query string false "all/image/video/carousel_album"
// @Param page query int false "页码，默认 1"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "未绑定账号"
// @Router /dashboard/media [get]
func (ctrl *DashboardController) Media(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found."})
		return
	}

	account, err := ctrl.instagramService.AccountRepo.GetByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询账号出错"})
		return
	}
	if account == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No Instagram account connected."})
		return
	}

	mediaType := c.DefaultQuery("type", "all")
	filter := repository.MediaFilter{Page: 1, PageSize: 24}
	if mediaType != "all" {
		filter.MediaType = strings.ToUpper(mediaType)
	}
	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}

	items, total, err := ctrl.mediaRepo.ListByAccount(c.Request.Context(), account.ID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询媒体出错"})
		return
	}

	views := make([]gin.H, 0, len(items))
	for i := range items {
		views = append(views, mediaView(&items[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"media":     views,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
		"type":      mediaType,
	})
}

// SyncMedia
// @Summary 手动触发媒体同步
// @Description 对当前店铺绑定账号执行一次有界同步，返回触达条数
// @Tags Dashboard
// @Param shop query string true "店铺域名"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "未绑定账号"
// @Router /dashboard/sync-media [post]
func (ctrl *DashboardController) SyncMedia(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found."})
		return
	}

	account, err := ctrl.instagramService.AccountRepo.GetByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询账号出错"})
		return
	}
	if account == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No Instagram account connected."})
		return
	}

	synced, err := ctrl.instagramService.SyncMedia(c.Request.Context(), account)
	if err != nil {
		ctrl.logger.Errorw("媒体同步失败",
			"shop_domain", shop.ShopDomain,
			"instagram_account_id", account.ID,
			"err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to sync media: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d media posts synced successfully.", len(synced)),
		"count":   len(synced),
	})
}

// RefreshToken
// @Summary 手动刷新 Instagram 长效凭证
// @Description 调用平台刷新 grant 并落库新凭证与过期时间
// @Tags Dashboard
// @Param shop query string true "店铺域名"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "未绑定账号"
// @Failure 500 {object} map[string]string "刷新失败"
// @Router /dashboard/refresh-token [post]
func (ctrl *DashboardController) RefreshToken(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found."})
		return
	}

	account, err := ctrl.instagramService.AccountRepo.GetByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询账号出错"})
		return
	}
	if account == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No Instagram account connected."})
		return
	}

	if err := ctrl.instagramService.RefreshAccountToken(c.Request.Context(), account); err != nil {
		ctrl.logger.Errorw("凭证刷新失败",
			"shop_domain", shop.ShopDomain,
			"instagram_account_id", account.ID,
			"err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to refresh token.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Access token refreshed successfully.",
		"new_expiry": account.TokenExpiresAt,
	})
}
