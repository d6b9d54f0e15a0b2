package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"shopify_insta_v1/internal/config"
	"shopify_insta_v1/internal/model"
	"shopify_insta_v1/internal/repository"
	"shopify_insta_v1/pkg/graphapi"
)

// 业务常量
const (
	// 单页拉取条数
	mediaPageSize = 25
	// 单次同步的帖子上限，防止对无界远端 feed 的一次调用失控
	maxMediaPerSync = 100

	mediaFields   = "id,media_type,media_url,caption,like_count,comments_count,timestamp,permalink"
	profileFields = "id,username,profile_picture_url,followers_count,media_count"
)

// InstagramService Instagram 连接授权 / Token 生命周期 / 媒体同步
type InstagramService struct {
	AccountRepo repository.InstagramAccountRepository
	MediaRepo   repository.InstagramMediaRepository

	cfg    config.InstagramConfig
	client *resty.Client
	logger *zap.SugaredLogger
}

// NewInstagramService 工厂方法
func NewInstagramService(
	accountRepo repository.InstagramAccountRepository,
	mediaRepo repository.InstagramMediaRepository,
	cfg config.InstagramConfig,
	client *resty.Client,
	logger *zap.SugaredLogger,
) *InstagramService {
	return &InstagramService{
		AccountRepo: accountRepo,
		MediaRepo:   mediaRepo,
		cfg:         cfg,
		client:      client,
		logger:      logger,
	}
}

// graphURL 拼接 Graph API 路径（base 可被测试覆盖）
func (s *InstagramService) graphURL(path string) string {
	return fmt.Sprintf("%s/%s%s", s.cfg.GraphBaseURL, s.cfg.GraphVersion, path)
}

// ==================== OAuth 流程 ====================

// BuildAuthURL 拼接 Facebook 授权对话框地址
// auth_type=rerequest：此前拒绝过授权的用户会被重新询问
func (s *InstagramService) BuildAuthURL(state string) string {
	query := url.Values{}
	query.Set("client_id", s.cfg.AppID)
	query.Set("redirect_uri", s.cfg.RedirectURI)
	query.Set("scope", s.cfg.Scopes)
	query.Set("state", state)
	query.Set("response_type", "code")
	query.Set("auth_type", "rerequest")

	return fmt.Sprintf("%s/%s/dialog/oauth?%s", s.cfg.DialogBaseURL, s.cfg.GraphVersion, query.Encode())
}

// ExchangeCodeForShortToken 授权码换短效 Token
func (s *InstagramService) ExchangeCodeForShortToken(ctx context.Context, code string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client_id":     s.cfg.AppID,
			"client_secret": s.cfg.AppSecret,
			"redirect_uri":  s.cfg.RedirectURI,
			"code":          code,
		}).
		Get(s.graphURL("/oauth/access_token"))
	if err != nil {
		return "", fmt.Errorf("换取短效 Token 失败: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("graph refused code exchange: status %d", resp.StatusCode())
	}

	var tokenResp graphapi.TokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return "", fmt.Errorf("graph token json decode failed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("graph token response missing access_token")
	}
	return tokenResp.AccessToken, nil
}

// UpgradeToLongToken 短效升级长效（约 60 天）
// grant_type 固定为 ig_exchange_token，平台契约
func (s *InstagramService) UpgradeToLongToken(ctx context.Context, shortToken string) (*graphapi.TokenResp, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":    "ig_exchange_token",
			"client_secret": s.cfg.AppSecret,
			"access_token":  shortToken,
		}).
		Get(s.graphURL("/oauth/access_token"))
	if err != nil {
		return nil, fmt.Errorf("升级长效 Token 失败: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("graph refused token upgrade: status %d", resp.StatusCode())
	}

	var tokenResp graphapi.TokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return nil, fmt.Errorf("graph token json decode failed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("graph token response missing access_token")
	}
	return &tokenResp, nil
}

// RefreshToken 刷新长效 Token（grant_type=ig_refresh_token）
// 无持久化副作用，新凭证由调用方落库
func (s *InstagramService) RefreshToken(ctx context.Context, currentToken string) (*graphapi.TokenResp, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":   "ig_refresh_token",
			"access_token": currentToken,
		}).
		Get(s.graphURL("/oauth/access_token"))
	if err != nil {
		return nil, fmt.Errorf("刷新 Token 失败: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("graph refused token refresh: status %d", resp.StatusCode())
	}

	var tokenResp graphapi.TokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return nil, fmt.Errorf("graph token json decode failed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("graph token response missing access_token")
	}
	return &tokenResp, nil
}

// RefreshAccountToken 刷新并落库某账号的凭证
func (s *InstagramService) RefreshAccountToken(ctx context.Context, account *model.InstagramAccount) error {
	bundle, err := s.RefreshToken(ctx, account.AccessToken)
	if err != nil {
		return err
	}

	expiresAt := tokenExpiry(bundle.ExpiresIn)
	if err := s.AccountRepo.UpdateToken(ctx, account.ID, bundle.AccessToken, expiresAt); err != nil {
		return fmt.Errorf("凭证落库失败: %w", err)
	}
	account.AccessToken = bundle.AccessToken
	account.TokenExpiresAt = expiresAt
	return nil
}

// ==================== 账号发现与绑定 ====================

// ListLinkedAccounts 列举调用方名下可绑定的 IG 企业账号
// 先查 Facebook 主页，再逐个拉取挂载的 IG 账号公开资料
// 返回空列表（err==nil）表示"没有可绑定账号"，与传输失败是两类结果
func (s *InstagramService) ListLinkedAccounts(ctx context.Context, longToken string) ([]graphapi.IGAccount, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": longToken,
			"fields":       "id,name,instagram_business_account",
		}).
		Get(s.graphURL("/me/accounts"))
	if err != nil {
		return nil, fmt.Errorf("拉取主页列表失败: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("graph refused pages listing: status %d", resp.StatusCode())
	}

	var pagesResp graphapi.PagesResp
	if err := json.Unmarshal(resp.Body(), &pagesResp); err != nil {
		return nil, fmt.Errorf("pages json decode failed: %w", err)
	}

	var accounts []graphapi.IGAccount
	for _, page := range pagesResp.Data {
		if page.InstagramBusinessAccount == nil {
			continue
		}

		igResp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"fields":       profileFields,
				"access_token": longToken,
			}).
			Get(s.graphURL("/" + page.InstagramBusinessAccount.ID))
		if err != nil || !igResp.IsSuccess() {
			// 单个账号资料拉取失败只跳过，不放弃整个列表
			s.logger.Warnw("IG 账号资料拉取失败", "ig_account_id", page.InstagramBusinessAccount.ID, "err", err)
			continue
		}

		var ig graphapi.IGAccount
		if err := json.Unmarshal(igResp.Body(), &ig); err != nil {
			continue
		}
		ig.PageID = page.ID
		ig.PageName = page.Name
		accounts = append(accounts, ig)
	}

	return accounts, nil
}

// UpsertAccount 社媒账号注册表的唯一写入路径
// 绝对过期时间 = now + expires_in（平台缺省时兜底约 60 天）
// 对 (shop, ig_account_id) 键覆盖写入
func (s *InstagramService) UpsertAccount(ctx context.Context, shop *model.Shop, ig graphapi.IGAccount, bundle *graphapi.TokenResp) (*model.InstagramAccount, error) {
	account := &model.InstagramAccount{
		ShopID:              shop.ID,
		IGBusinessAccountID: ig.ID,
		AccessToken:         bundle.AccessToken,
		TokenExpiresAt:      tokenExpiry(bundle.ExpiresIn),
		AccountData: datatypes.JSONMap{
			"username":            ig.Username,
			"profile_picture_url": ig.ProfilePictureURL,
			"followers_count":     ig.FollowersCount,
			"media_count":         ig.MediaCount,
			"page_id":             ig.PageID,
			"page_name":           ig.PageName,
		},
	}

	if err := s.AccountRepo.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("账号入库失败: %w", err)
	}
	return account, nil
}

// Disconnect 断开账号（硬删除，媒体缓存一并清除）
func (s *InstagramService) Disconnect(ctx context.Context, account *model.InstagramAccount) error {
	return s.AccountRepo.Delete(ctx, account.ID)
}

// ==================== 媒体同步 ====================

// fetchMediaPage 拉取一页媒体；after 为空表示首页
func (s *InstagramService) fetchMediaPage(ctx context.Context, account *model.InstagramAccount, after string) (*graphapi.MediaListResp, error) {
	params := map[string]string{
		"fields":       mediaFields,
		"limit":        fmt.Sprintf("%d", mediaPageSize),
		"access_token": account.AccessToken,
	}
	if after != "" {
		params["after"] = after
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(s.graphURL("/" + account.IGBusinessAccountID + "/media"))
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("graph refused media listing: status %d", resp.StatusCode())
	}

	var mediaResp graphapi.MediaListResp
	if err := json.Unmarshal(resp.Body(), &mediaResp); err != nil {
		return nil, err
	}
	return &mediaResp, nil
}

// SyncMedia 分页拉取远端帖子并幂等 upsert 到本地缓存
// 游标循环，单次调用最多触达 maxMediaPerSync 条，达到上限立即中止（哪怕页中）
// 页拉取失败或空页即终止；已提交的部分结果保留，不回滚
func (s *InstagramService) SyncMedia(ctx context.Context, account *model.InstagramAccount) ([]model.InstagramMedia, error) {
	var synced []model.InstagramMedia
	after := ""
	fetched := 0

	for {
		page, err := s.fetchMediaPage(ctx, account, after)
		if err != nil {
			// 传输失败终止本轮，保留已入库的部分
			s.logger.Warnw("媒体分页拉取失败，终止本轮同步",
				"shop_id", account.ShopID,
				"instagram_account_id", account.ID,
				"err", err)
			break
		}
		if len(page.Data) == 0 {
			break
		}

		for _, entry := range page.Data {
			mediaURL := entry.MediaURL
			if mediaURL == "" {
				mediaURL = entry.Permalink
			}

			row, err := s.MediaRepo.Upsert(ctx, &model.InstagramMedia{
				InstagramAccountID: account.ID,
				IGMediaID:          entry.ID,
				MediaType:          entry.MediaType,
				MediaURL:           mediaURL,
				Caption:            entry.Caption,
				LikesCount:         entry.LikeCount,
				CommentsCount:      entry.CommentsCount,
				PostedAt:           parseGraphTime(entry.Timestamp),
			})
			if err != nil {
				return synced, fmt.Errorf("媒体入库失败 (media_id=%s): %w", entry.ID, err)
			}

			synced = append(synced, *row)
			fetched++
			if fetched >= maxMediaPerSync {
				return synced, nil
			}
		}

		after = page.Paging.Cursors.After
		if after == "" {
			break
		}
	}

	return synced, nil
}

// ==================== 辅助函数 ====================

// tokenExpiry 相对 expires_in 换算为绝对过期时间
func tokenExpiry(expiresIn int64) time.Time {
	ttl := model.DefaultTokenTTL
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}
	return time.Now().Add(ttl)
}

// parseGraphTime Graph API 时间戳格式 "2006-01-02T15:04:05+0000"
func parseGraphTime(ts string) time.Time {
	if ts == "" {
		return time.Now()
	}
	if t, err := time.Parse("2006-01-02T15:04:05-0700", ts); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Now()
}
