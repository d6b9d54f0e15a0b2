package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopify_insta_v1/internal/config"
	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAPISecret = "test-api-secret"

// ==================== 测试装配 ====================

type authTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupAuthTestEnv(t *testing.T) *authTestEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Shop{}, &model.OAuthState{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	shopRepo := repository.NewShopRepository(db)
	stateRepo := repository.NewOAuthStateRepository(db)
	sugar := zap.NewNop().Sugar()

	shopifyCfg := config.ShopifyConfig{
		APIKey:      "test-api-key",
		APISecret:   testAPISecret,
		RedirectURI: "https://app.example.com/shopify/callback",
		Scopes:      "read_products,read_orders,read_content",
		APIVersion:  "2024-01",
	}
	shopifySvc := service.NewShopifyService(shopRepo, shopifyCfg, resty.New(), sugar)
	stateSvc := service.NewStateService(stateRepo, sugar)

	ctrl := NewShopifyAuthController(shopifySvc, stateSvc)

	r := gin.New()
	r.GET("/shopify/install", ctrl.Install)
	r.GET("/shopify/callback", ctrl.Callback)
	r.POST("/shopify/uninstall", ctrl.Uninstall)

	return &authTestEnv{db: db, router: r}
}

func webhookSig(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ==================== 安装入口测试 ====================

func TestShopifyInstall_MissingShop(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, "/shopify/install", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShopifyInstall_InvalidDomain(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, "/shopify/install?shop=acme_store.myshopify.com", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非法域名不产生任何 state
	var count int64
	env.db.Model(&model.OAuthState{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestShopifyInstall_RedirectsToAuthorize(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, "/shopify/install?shop=demo.myshopify.com", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://demo.myshopify.com/admin/oauth/authorize?") {
		t.Fatalf("location = %s, 应跳转店铺授权页", location)
	}

	// 跳转携带的 state 必须已落库且可核销
	u, _ := url.Parse(location)
	state := u.Query().Get("state")
	assert.NotEmpty(t, state)

	var row model.OAuthState
	err := env.db.Where("state = ? AND provider = ?", state, model.ProviderShopify).First(&row).Error
	assert.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", row.ShopDomain())
}

// ==================== 回调测试 ====================

func TestShopifyCallback_InvalidHMAC(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet,
		"/shopify/callback?shop=demo.myshopify.com&code=c&state=s&hmac=deadbeef", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid HMAC signature.")
}

func TestShopifyCallback_UnknownState(t *testing.T) {
	env := setupAuthTestEnv(t)

	// HMAC 合法但 state 从未签发
	params := url.Values{}
	params.Set("shop", "demo.myshopify.com")
	params.Set("code", "auth-code")
	params.Set("state", "never-issued")
	params.Set("timestamp", "1700000000")

	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write([]byte(params.Encode()))
	params.Set("hmac", hex.EncodeToString(mac.Sum(nil)))

	req, _ := http.NewRequest(http.MethodGet, "/shopify/callback?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired state token.")
}

// ==================== 卸载 webhook 测试 ====================

func TestShopifyUninstall_MissingDomainHeader(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodPost, "/shopify/uninstall", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShopifyUninstall_InvalidSignature(t *testing.T) {
	env := setupAuthTestEnv(t)

	req, _ := http.NewRequest(http.MethodPost, "/shopify/uninstall", strings.NewReader("{}"))
	req.Header.Set("X-Shopify-Shop-Domain", "demo.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", "bogus-signature")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShopifyUninstall_DeactivatesShop(t *testing.T) {
	env := setupAuthTestEnv(t)
	body := []byte(`{"shop_domain":"demo.myshopify.com"}`)

	// 预置一家已激活店铺
	shop := &model.Shop{ShopDomain: "demo.myshopify.com", ShopifyToken: "tok", IsActive: true}
	if err := env.db.Create(shop).Error; err != nil {
		t.Fatalf("预置店铺失败: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/shopify/uninstall", strings.NewReader(string(body)))
	req.Header.Set("X-Shopify-Shop-Domain", "demo.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", webhookSig(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// 店铺行保留但被停用
	var stored model.Shop
	env.db.Where("shop_domain = ?", "demo.myshopify.com").First(&stored)
	assert.False(t, stored.IsActive)
}

func TestShopifyUninstall_UnknownShopStillOK(t *testing.T) {
	env := setupAuthTestEnv(t)
	body := []byte(`{"shop_domain":"ghost.myshopify.com"}`)

	// 未知店铺的合法 webhook 返回 200，平台侧不需要重试
	req, _ := http.NewRequest(http.MethodPost, "/shopify/uninstall", strings.NewReader(string(body)))
	req.Header.Set("X-Shopify-Shop-Domain", "ghost.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", webhookSig(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
