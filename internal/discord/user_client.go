package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/flamey-bot/dashboard/internal/model"
)

// defaultAPIBaseURL はDiscord REST APIのベースURL。
const defaultAPIBaseURL = "https://discord.com/api/v10"

// MetricsRecorder はDiscord API呼び出しのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。nilの場合は記録しない。
type MetricsRecorder interface {
	RecordDiscordRequest(endpoint string, statusCode int)
}

// UserClient はユーザーのOAuthアクセストークン（Bearer）でDiscord APIを呼び出すクライアント。
// トークンの取得・リフレッシュは行わない。401はErrUnauthorizedとして返し、
// リフレッシュ後の1回だけのリトライは呼び出し元の責務とする。
type UserClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
	baseURL    string // テスト用にオーバーライド可能
}

// NewUserClient はUserClientを生成する。
// httpClientにはタイムアウトを設定したクライアントを渡すこと。
func NewUserClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder) *UserClient {
	return &UserClient{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		baseURL:    defaultAPIBaseURL,
	}
}

// SetBaseURL はAPIベースURLを差し替える。テスト専用。
func (c *UserClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// UserGuilds はユーザーが所属するギルド一覧を取得する。
// GET /users/@me/guilds
// 401の場合はErrUnauthorized、その他の非2xxは*APIErrorを返す。
func (c *UserClient) UserGuilds(ctx context.Context, accessToken string) ([]model.Guild, error) {
	body, err := c.get(ctx, "/users/@me/guilds", accessToken)
	if err != nil {
		return nil, err
	}

	var guilds []model.Guild
	if err := json.Unmarshal(body, &guilds); err != nil {
		return nil, fmt.Errorf("failed to parse guilds response: %w", err)
	}
	return guilds, nil
}

// User はDiscordの /users/@me が返すユーザー情報。
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// CurrentUser はアクセストークンの持ち主のDiscordユーザー情報を取得する。
// ログイン時のidentity紐付けに使う。
func (c *UserClient) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.get(ctx, "/users/@me", accessToken)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}
	return &user, nil
}

// get はBearer認証付きGETを実行し、2xxのレスポンスボディを返す。
func (c *UserClient) get(ctx context.Context, path, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// タイムアウトを含む転送エラーは非2xxと同等に扱う（リトライしない）
		return nil, fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordDiscordRequest(path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read discord response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("discord api returned error status",
			slog.String("endpoint", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
