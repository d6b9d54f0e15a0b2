package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.HTTP.Timeout != 20*time.Second {
		t.Errorf("http timeout = %v, want 20s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", cfg.HTTP.RetryCount)
	}

	// 连接池默认值
	if cfg.Database.MaxIdleConns != 10 {
		t.Errorf("max idle conns = %d, want 10", cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxOpenConns != 100 {
		t.Errorf("max open conns = %d, want 100", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime != time.Hour {
		t.Errorf("conn max lifetime = %v, want 1h", cfg.Database.ConnMaxLifetime)
	}
	if cfg.Database.LogSQL {
		t.Error("log sql 默认应关闭")
	}

	if cfg.Instagram.GraphBaseURL != "https://graph.facebook.com" {
		t.Errorf("graph base url = %s", cfg.Instagram.GraphBaseURL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "20")
	t.Setenv("DATABASE_LOG_SQL", "true")
	t.Setenv("INSTAGRAM_GRAPH_BASE_URL", "http://127.0.0.1:9999")

	cfg := Load()

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("http timeout = %v, want 5s", cfg.HTTP.Timeout)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Errorf("max open conns = %d, want 20", cfg.Database.MaxOpenConns)
	}
	if !cfg.Database.LogSQL {
		t.Error("log sql 应被环境变量打开")
	}
	if cfg.Instagram.GraphBaseURL != "http://127.0.0.1:9999" {
		t.Errorf("graph base url = %s, 应被环境变量覆盖", cfg.Instagram.GraphBaseURL)
	}
}
