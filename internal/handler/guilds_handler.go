package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flamey-bot/dashboard/internal/discord"
	"github.com/flamey-bot/dashboard/internal/middleware"
	"github.com/flamey-bot/dashboard/internal/model"
)

// GuildServiceInterface はギルドハンドラーが必要とするサービスインターフェース。
type GuildServiceInterface interface {
	// ListManageable はユーザーが設定変更可能なギルド一覧を返す。
	ListManageable(ctx context.Context, userID string) ([]model.Guild, error)
	// CommonGuilds はユーザーのギルドID一覧とBotの参加ギルドの積集合を返す。
	CommonGuilds(ctx context.Context, userGuildIDs []string) ([]string, error)
	// GuildChannels は指定ギルドのテキスト系チャンネル一覧を返す。
	GuildChannels(ctx context.Context, guildID string) ([]model.GuildChannel, error)
}

// GuildHandler はギルド関連のHTTPハンドラー。
type GuildHandler struct {
	service GuildServiceInterface
}

// NewGuildHandler はGuildHandlerを生成する。
func NewGuildHandler(service GuildServiceInterface) *GuildHandler {
	return &GuildHandler{service: service}
}

// commonGuildsRequest はBot参加状況の照会リクエストのボディ。
type commonGuildsRequest struct {
	UserGuildIDs []string `json:"userGuildIds"`
}

// commonGuildsResponse はBot参加状況の照会レスポンス。
type commonGuildsResponse struct {
	CommonGuildIDs []string `json:"commonGuildIds"`
}

// channelsResponse はチャンネル一覧のレスポンス。
// BotNotInGuildの場合はChannelsは空配列、ErrorとMessageに詳細が入る。
type channelsResponse struct {
	Channels []model.GuildChannel `json:"channels"`
	Error    string               `json:"error,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// ListGuilds はユーザーが管理可能なギルド一覧を返す。
// GET /api/guilds
func (h *GuildHandler) ListGuilds(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	guilds, err := h.service.ListManageable(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"guilds": guilds})
}

// CommonGuilds はユーザーのギルド一覧とBotの参加ギルドの積集合を返す。
// POST /api/guilds/common
func (h *GuildHandler) CommonGuilds(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req commonGuildsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.UserGuildIDs == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("userGuildIdsが指定されていません"))
		return
	}

	common, err := h.service.CommonGuilds(r.Context(), req.UserGuildIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commonGuildsResponse{CommonGuildIDs: common})
}

// ListChannels は指定ギルドのテキスト系チャンネル一覧を返す。
// GET /api/guilds/{id}/channels
//
// Botが対象ギルドに参加していない場合は障害ではなく確定した状態のため、
// 200で空のチャンネル一覧と案内メッセージを返す。UIは再招待の導線を表示する。
func (h *GuildHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	guildID := chi.URLParam(r, "id")
	if guildID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("guild IDが指定されていません"))
		return
	}

	channels, err := h.service.GuildChannels(r.Context(), guildID)
	if err != nil {
		if errors.Is(err, discord.ErrBotNotInGuild) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(channelsResponse{
				Channels: []model.GuildChannel{},
				Error:    model.ErrCodeBotNotInGuild,
				Message:  model.BotNotInGuildMessage,
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channelsResponse{Channels: channels})
}
