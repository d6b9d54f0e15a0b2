package config

import (
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 进程级配置，启动时加载一次，按依赖注入分发
// 平台密钥绝不允许以全局变量形式散落在业务代码中
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Shopify   ShopifyConfig
	Instagram InstagramConfig
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port    string
	AppURL  string // 本服务对外地址，用于拼接 dashboard 跳转
	GinMode string
}

// DatabaseConfig 数据库连接与连接池配置
type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

// HTTPConfig 出站请求策略
// 上游调用必须显式限定超时；核心默认不做内联重试 (RetryCount=0)
type HTTPConfig struct {
	Timeout    time.Duration
	RetryCount int
}

// ShopifyConfig Shopify 平台凭证
type ShopifyConfig struct {
	APIKey      string
	APISecret   string
	RedirectURI string
	Scopes      string
	APIVersion  string
}

// InstagramConfig Facebook Graph / Instagram 平台凭证
type InstagramConfig struct {
	AppID        string
	AppSecret    string
	RedirectURI  string
	GraphVersion string
	Scopes       string
	// GraphBaseURL 与 DialogBaseURL 可覆盖，测试时指向 httptest
	GraphBaseURL  string
	DialogBaseURL string
}

// ==================== 加载 ====================

// Load 从环境变量加载配置（viper 统一读取，带默认值）
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	// 服务
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("GIN_MODE", "debug")

	// 数据库
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=shopify_insta port=5432 sslmode=disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DATABASE_LOG_SQL", false)

	// 出站 HTTP
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 20)
	v.SetDefault("HTTP_RETRY_COUNT", 0)

	// Shopify
	v.SetDefault("SHOPIFY_SCOPES", "read_products,read_orders,read_content")
	v.SetDefault("SHOPIFY_API_VERSION", "2024-01")

	// Instagram
	v.SetDefault("INSTAGRAM_GRAPH_VERSION", "v19.0")
	v.SetDefault("INSTAGRAM_SCOPES", "instagram_basic,instagram_manage_insights,pages_show_list")
	v.SetDefault("INSTAGRAM_GRAPH_BASE_URL", "https://graph.facebook.com")
	v.SetDefault("INSTAGRAM_DIALOG_BASE_URL", "https://www.facebook.com")

	return &Config{
		Server: ServerConfig{
			Port:    v.GetString("SERVER_PORT"),
			AppURL:  v.GetString("APP_URL"),
			GinMode: v.GetString("GIN_MODE"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DATABASE_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
			LogSQL:          v.GetBool("DATABASE_LOG_SQL"),
		},
		HTTP: HTTPConfig{
			Timeout:    time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
			RetryCount: v.GetInt("HTTP_RETRY_COUNT"),
		},
		Shopify: ShopifyConfig{
			APIKey:      v.GetString("SHOPIFY_API_KEY"),
			APISecret:   v.GetString("SHOPIFY_API_SECRET"),
			RedirectURI: v.GetString("SHOPIFY_REDIRECT_URI"),
			Scopes:      v.GetString("SHOPIFY_SCOPES"),
			APIVersion:  v.GetString("SHOPIFY_API_VERSION"),
		},
		Instagram: InstagramConfig{
			AppID:         v.GetString("INSTAGRAM_APP_ID"),
			AppSecret:     v.GetString("INSTAGRAM_APP_SECRET"),
			RedirectURI:   v.GetString("INSTAGRAM_REDIRECT_URI"),
			GraphVersion:  v.GetString("INSTAGRAM_GRAPH_VERSION"),
			Scopes:        v.GetString("INSTAGRAM_SCOPES"),
			GraphBaseURL:  v.GetString("INSTAGRAM_GRAPH_BASE_URL"),
			DialogBaseURL: v.GetString("INSTAGRAM_DIALOG_BASE_URL"),
		},
	}
}
