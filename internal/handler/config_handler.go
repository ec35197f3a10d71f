package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flamey-bot/dashboard/internal/middleware"
	"github.com/flamey-bot/dashboard/internal/model"
)

// GuildConfigServiceInterface はギルド設定ハンドラーが必要とするサービスインターフェース。
type GuildConfigServiceInterface interface {
	Get(ctx context.Context, guildID string) (*model.GuildConfig, error)
	Update(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error)
}

// GuildConfigHandler はギルド設定のHTTPハンドラー。
type GuildConfigHandler struct {
	service GuildConfigServiceInterface
}

// NewGuildConfigHandler はGuildConfigHandlerを生成する。
func NewGuildConfigHandler(service GuildConfigServiceInterface) *GuildConfigHandler {
	return &GuildConfigHandler{service: service}
}

// guildConfigResponse はギルド設定のAPIレスポンス。
type guildConfigResponse struct {
	GuildID              string    `json:"guild_id"`
	Prefix               string    `json:"prefix"`
	WelcomeEnabled       bool      `json:"welcome_enabled"`
	WelcomeChannel       string    `json:"welcome_channel"`
	WelcomeMessage       string    `json:"welcome_message"`
	GoodbyeEnabled       bool      `json:"goodbye_enabled"`
	GoodbyeMessage       string    `json:"goodbye_message"`
	AIChatbotEnabled     bool      `json:"ai_chatbot_enabled"`
	AIChatbotAutoChannel string    `json:"ai_chatbot_auto_channel"`
	AIChatbotPersona     string    `json:"ai_chatbot_persona"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// updateGuildConfigRequest はギルド設定更新リクエストのボディ。
type updateGuildConfigRequest struct {
	Prefix               string `json:"prefix"`
	WelcomeEnabled       bool   `json:"welcome_enabled"`
	WelcomeChannel       string `json:"welcome_channel"`
	WelcomeMessage       string `json:"welcome_message"`
	GoodbyeEnabled       bool   `json:"goodbye_enabled"`
	GoodbyeMessage       string `json:"goodbye_message"`
	AIChatbotEnabled     bool   `json:"ai_chatbot_enabled"`
	AIChatbotAutoChannel string `json:"ai_chatbot_auto_channel"`
	AIChatbotPersona     string `json:"ai_chatbot_persona"`
}

// GetConfig はギルド設定を取得する。未設定のギルドには初期値を返す。
// GET /api/guilds/{id}/config
func (h *GuildConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	guildID := chi.URLParam(r, "id")
	cfg, err := h.service.Get(r.Context(), guildID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toGuildConfigResponse(cfg))
}

// UpdateConfig はギルド設定を更新する。
// PUT /api/guilds/{id}/config
func (h *GuildConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	guildID := chi.URLParam(r, "id")

	var req updateGuildConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	cfg, err := h.service.Update(r.Context(), &model.GuildConfig{
		GuildID:              guildID,
		Prefix:               req.Prefix,
		WelcomeEnabled:       req.WelcomeEnabled,
		WelcomeChannel:       req.WelcomeChannel,
		WelcomeMessage:       req.WelcomeMessage,
		GoodbyeEnabled:       req.GoodbyeEnabled,
		GoodbyeMessage:       req.GoodbyeMessage,
		AIChatbotEnabled:     req.AIChatbotEnabled,
		AIChatbotAutoChannel: req.AIChatbotAutoChannel,
		AIChatbotPersona:     req.AIChatbotPersona,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toGuildConfigResponse(cfg))
}

// toGuildConfigResponse はドメインのGuildConfigをレスポンス型に変換する。
func toGuildConfigResponse(cfg *model.GuildConfig) guildConfigResponse {
	return guildConfigResponse{
		GuildID:              cfg.GuildID,
		Prefix:               cfg.Prefix,
		WelcomeEnabled:       cfg.WelcomeEnabled,
		WelcomeChannel:       cfg.WelcomeChannel,
		WelcomeMessage:       cfg.WelcomeMessage,
		GoodbyeEnabled:       cfg.GoodbyeEnabled,
		GoodbyeMessage:       cfg.GoodbyeMessage,
		AIChatbotEnabled:     cfg.AIChatbotEnabled,
		AIChatbotAutoChannel: cfg.AIChatbotAutoChannel,
		AIChatbotPersona:     cfg.AIChatbotPersona,
		UpdatedAt:            cfg.UpdatedAt,
	}
}
