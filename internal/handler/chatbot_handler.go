package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/flamey-bot/dashboard/internal/chatbot"
	"github.com/flamey-bot/dashboard/internal/middleware"
	"github.com/flamey-bot/dashboard/internal/model"
)

// ChatbotServiceInterface はチャットボットハンドラーが必要とするサービスインターフェース。
type ChatbotServiceInterface interface {
	GenerateResponse(ctx context.Context, persona string, history []chatbot.Message) (string, error)
}

// ChatbotMetrics はチャットボット応答生成のメトリクス記録インターフェース。
// nilの場合は記録しない。
type ChatbotMetrics interface {
	RecordChatbotRequest(outcome string)
}

// ChatbotHandler はAIチャットボット応答生成のHTTPハンドラー。
// serviceがnilの場合（GEMINI_API_KEY未設定）は機能無効として扱う。
type ChatbotHandler struct {
	service ChatbotServiceInterface
	metrics ChatbotMetrics
}

// NewChatbotHandler はChatbotHandlerを生成する。
func NewChatbotHandler(service ChatbotServiceInterface, metrics ChatbotMetrics) *ChatbotHandler {
	return &ChatbotHandler{service: service, metrics: metrics}
}

// generateRequest は応答生成リクエストのボディ。
type generateRequest struct {
	Persona string            `json:"persona"`
	History []chatbot.Message `json:"history"`
}

// generateResponse は応答生成のレスポンス。
type generateResponse struct {
	Text string `json:"text"`
}

// Generate はペルソナと会話履歴から応答テキストを生成する。
// POST /api/chatbot/generate
func (h *ChatbotHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	if h.service == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewChatbotUnavailableError())
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if len(req.History) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("historyが空です"))
		return
	}

	text, err := h.service.GenerateResponse(r.Context(), req.Persona, req.History)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordChatbotRequest("failure")
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordChatbotRequest("success")
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(generateResponse{Text: text})
}
