package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOAuth(tokenURL string) *OAuth {
	return NewOAuth(OAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/discord/callback",
		TokenURL:     tokenURL,
	}, &http.Client{}, slog.Default())
}

func TestOAuth_AuthCodeURL(t *testing.T) {
	o := newTestOAuth("")

	url := o.AuthCodeURL("test-state")

	if !strings.HasPrefix(url, "https://discord.com/oauth2/authorize") {
		t.Errorf("url = %q, should start with discord authorize endpoint", url)
	}
	for _, want := range []string{
		"client_id=test-client-id",
		"state=test-state",
		"scope=identify+email+guilds",
	} {
		if !strings.Contains(url, want) {
			t.Errorf("url = %q, should contain %q", url, want)
		}
	}
}

func TestOAuth_Exchange_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.Form.Get("code"); got != "auth-code-1" {
			t.Errorf("code = %q, want auth-code-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token":"new-access",
			"refresh_token":"new-refresh",
			"token_type":"Bearer",
			"expires_in":604800
		}`))
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	tok, err := o.Exchange(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want new-access", tok.AccessToken)
	}
	if tok.RefreshToken != "new-refresh" {
		t.Errorf("RefreshToken = %q, want new-refresh", tok.RefreshToken)
	}
}

func TestOAuth_Exchange_ProviderRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	if _, err := o.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("expected error when provider rejects the code")
	}
}

func TestOAuth_Refresh_RotatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.Form.Get("refresh_token"); got != "old-refresh" {
			t.Errorf("refresh_token = %q, want old-refresh", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token":"rotated-access",
			"refresh_token":"rotated-refresh",
			"token_type":"Bearer",
			"expires_in":604800
		}`))
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	tok, err := o.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "rotated-access" {
		t.Errorf("AccessToken = %q, want rotated-access", tok.AccessToken)
	}
	if tok.RefreshToken != "rotated-refresh" {
		t.Errorf("RefreshToken = %q, want rotated-refresh", tok.RefreshToken)
	}
}

// プロバイダーがrefresh_tokenを省略した場合は旧値を維持する。
func TestOAuth_Refresh_EmptyRotation_KeepsOldRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token":"rotated-access",
			"token_type":"Bearer",
			"expires_in":604800
		}`))
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	tok, err := o.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.RefreshToken != "old-refresh" {
		t.Errorf("RefreshToken = %q, want old-refresh preserved", tok.RefreshToken)
	}
}

func TestOAuth_Refresh_ProviderRejects_ReturnsErrTokenRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid refresh token"}`))
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	_, err := o.Refresh(context.Background(), "revoked-refresh")
	if !errors.Is(err, ErrTokenRefresh) {
		t.Errorf("error = %v, want ErrTokenRefresh", err)
	}
}

func TestOAuth_Refresh_ServerError_ReturnsErrTokenRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	o := newTestOAuth(server.URL)

	_, err := o.Refresh(context.Background(), "some-refresh")
	if !errors.Is(err, ErrTokenRefresh) {
		t.Errorf("error = %v, want ErrTokenRefresh", err)
	}
}
