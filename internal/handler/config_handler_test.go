package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/flamey-bot/dashboard/internal/model"
)

// --- モック定義 ---

type mockGuildConfigService struct {
	getFn    func(ctx context.Context, guildID string) (*model.GuildConfig, error)
	updateFn func(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error)
}

func (m *mockGuildConfigService) Get(ctx context.Context, guildID string) (*model.GuildConfig, error) {
	if m.getFn != nil {
		return m.getFn(ctx, guildID)
	}
	return nil, nil
}

func (m *mockGuildConfigService) Update(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, cfg)
	}
	return cfg, nil
}

var _ GuildConfigServiceInterface = (*mockGuildConfigService)(nil)

func newConfigRouter(h *GuildConfigHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/guilds/{id}/config", h.GetConfig)
	r.Put("/api/guilds/{id}/config", h.UpdateConfig)
	return r
}

// --- テスト ---

func TestGuildConfigHandler_GetConfig_ReturnsConfig(t *testing.T) {
	svc := &mockGuildConfigService{
		getFn: func(ctx context.Context, guildID string) (*model.GuildConfig, error) {
			return &model.GuildConfig{
				GuildID: guildID,
				Prefix:  "!",
			}, nil
		},
	}
	router := newConfigRouter(NewGuildConfigHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/guild-1/config", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got guildConfigResponse
	json.NewDecoder(resp.Body).Decode(&got)
	if got.GuildID != "guild-1" {
		t.Errorf("guild_id = %q, want guild-1", got.GuildID)
	}
	if got.Prefix != "!" {
		t.Errorf("prefix = %q, want !", got.Prefix)
	}
}

func TestGuildConfigHandler_GetConfig_NoUserID_ReturnsUnauthorized(t *testing.T) {
	router := newConfigRouter(NewGuildConfigHandler(&mockGuildConfigService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/guild-1/config", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGuildConfigHandler_UpdateConfig_PersistsAndReturnsConfig(t *testing.T) {
	var updated *model.GuildConfig
	svc := &mockGuildConfigService{
		updateFn: func(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error) {
			updated = cfg
			return cfg, nil
		},
	}
	router := newConfigRouter(NewGuildConfigHandler(svc))

	body := strings.NewReader(`{"prefix":"!!","ai_chatbot_enabled":true,"ai_chatbot_persona":"friendly"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/guilds/guild-2/config", body)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if updated == nil {
		t.Fatal("expected Update to be called")
	}
	// URLパスのギルドIDがボディより優先されること
	if updated.GuildID != "guild-2" {
		t.Errorf("guildID = %q, want guild-2", updated.GuildID)
	}
	if updated.Prefix != "!!" {
		t.Errorf("prefix = %q, want !!", updated.Prefix)
	}
	if !updated.AIChatbotEnabled {
		t.Error("expected AI chatbot to be enabled")
	}
}

func TestGuildConfigHandler_UpdateConfig_InvalidPrefix_ReturnsBadRequest(t *testing.T) {
	svc := &mockGuildConfigService{
		updateFn: func(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error) {
			return nil, model.NewInvalidPrefixError(cfg.Prefix)
		},
	}
	router := newConfigRouter(NewGuildConfigHandler(svc))

	body := strings.NewReader(`{"prefix":"toolong!"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/guilds/guild-3/config", body)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var got apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Code != model.ErrCodeInvalidPrefix {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeInvalidPrefix)
	}
}

func TestGuildConfigHandler_UpdateConfig_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	router := newConfigRouter(NewGuildConfigHandler(&mockGuildConfigService{}))

	req := httptest.NewRequest(http.MethodPut, "/api/guilds/guild-4/config", strings.NewReader("{invalid"))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
