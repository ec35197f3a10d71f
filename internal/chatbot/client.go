// Package chatbot はGemini APIを使ったAIチャットボット応答生成を提供する。
// ダッシュボードのペルソナプレビューとBot本体の応答生成プロキシが使用する。
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// defaultEndpoint はGemini generateContent APIのエンドポイント（モデル名を除く）。
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	// defaultSystemInstruction はペルソナ未設定時のシステム指示。
	defaultSystemInstruction = "You are a friendly and helpful Discord bot."
	// maxHistoryMessages は1リクエストに含める会話履歴の最大件数。
	maxHistoryMessages = 20
)

// Message は会話履歴の1件を表す。Roleは "user" または "model"。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client はGemini APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		endpoint:   defaultEndpoint,
	}
}

// SetEndpoint はAPIエンドポイントを差し替える。テスト専用。
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = strings.TrimRight(endpoint, "/")
}

// geminiRequest はgenerateContentのリクエストボディ。
type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse はgenerateContentのレスポンスボディ。
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateResponse はペルソナと会話履歴から応答テキストを生成する。
// personaが空の場合は既定のシステム指示を使う。
// historyの末尾が最新メッセージ。上限を超える履歴は古い順に切り捨てる。
func (c *Client) GenerateResponse(ctx context.Context, persona string, history []Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("会話履歴が空です")
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	instruction := persona
	if instruction == "" {
		instruction = defaultSystemInstruction
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: instruction}},
		},
		Contents: make([]geminiContent, 0, len(history)),
	}
	for _, m := range history {
		role := m.Role
		if role != "model" {
			role = "user"
		}
		reqBody.Contents = append(reqBody.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", c.model),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("Gemini APIがステータス %d を返しました", resp.StatusCode)
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Gemini APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini APIが候補を返しませんでした")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
