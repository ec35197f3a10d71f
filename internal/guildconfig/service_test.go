package guildconfig

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/flamey-bot/dashboard/internal/model"
	"github.com/flamey-bot/dashboard/internal/repository"
)

// --- モック ---

type mockGuildConfigRepo struct {
	findByGuildIDFn func(ctx context.Context, guildID string) (*model.GuildConfig, error)
	upsertFn        func(ctx context.Context, cfg *model.GuildConfig) error
}

func (m *mockGuildConfigRepo) FindByGuildID(ctx context.Context, guildID string) (*model.GuildConfig, error) {
	if m.findByGuildIDFn != nil {
		return m.findByGuildIDFn(ctx, guildID)
	}
	return nil, nil
}

func (m *mockGuildConfigRepo) Upsert(ctx context.Context, cfg *model.GuildConfig) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, cfg)
	}
	return nil
}

var _ repository.GuildConfigRepository = (*mockGuildConfigRepo)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

func TestGet_UnconfiguredGuild_ReturnsDefaults(t *testing.T) {
	repo := &mockGuildConfigRepo{
		findByGuildIDFn: func(ctx context.Context, guildID string) (*model.GuildConfig, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, testLogger())

	cfg, err := svc.Get(context.Background(), "guild-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cfg.GuildID != "guild-1" {
		t.Errorf("guildID = %q, want %q", cfg.GuildID, "guild-1")
	}
	if cfg.Prefix != model.DefaultPrefix {
		t.Errorf("prefix = %q, want default %q", cfg.Prefix, model.DefaultPrefix)
	}
	if cfg.WelcomeEnabled || cfg.AIChatbotEnabled {
		t.Error("feature flags should default to disabled")
	}
}

func TestGet_ConfiguredGuild_ReturnsStoredConfig(t *testing.T) {
	repo := &mockGuildConfigRepo{
		findByGuildIDFn: func(ctx context.Context, guildID string) (*model.GuildConfig, error) {
			return &model.GuildConfig{
				GuildID:        guildID,
				Prefix:         "!",
				WelcomeEnabled: true,
				WelcomeChannel: "channel-9",
			}, nil
		},
	}
	svc := NewService(repo, testLogger())

	cfg, err := svc.Get(context.Background(), "guild-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cfg.Prefix != "!" {
		t.Errorf("prefix = %q, want %q", cfg.Prefix, "!")
	}
	if !cfg.WelcomeEnabled {
		t.Error("expected welcome to be enabled")
	}
}

func TestGet_RepoError_ReturnsError(t *testing.T) {
	repo := &mockGuildConfigRepo{
		findByGuildIDFn: func(ctx context.Context, guildID string) (*model.GuildConfig, error) {
			return nil, errors.New("db error")
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.Get(context.Background(), "guild-3")
	if err == nil {
		t.Fatal("expected error from Get")
	}
}

func TestUpdate_ValidConfig_Persists(t *testing.T) {
	var stored *model.GuildConfig
	repo := &mockGuildConfigRepo{
		upsertFn: func(ctx context.Context, cfg *model.GuildConfig) error {
			stored = cfg
			return nil
		},
	}
	svc := NewService(repo, testLogger())

	cfg, err := svc.Update(context.Background(), &model.GuildConfig{
		GuildID:          "guild-4",
		Prefix:           "!!",
		AIChatbotEnabled: true,
		AIChatbotPersona: "friendly",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if stored == nil {
		t.Fatal("expected config to be stored")
	}
	if stored.Prefix != "!!" {
		t.Errorf("stored prefix = %q, want %q", stored.Prefix, "!!")
	}
	if cfg.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestUpdate_InvalidPrefix_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockGuildConfigRepo{}, testLogger())

	cases := []struct {
		name   string
		prefix string
	}{
		{"empty", ""},
		{"too long", "!!!!!!"},
		{"contains space", "! "},
		{"contains tab", "a\tb"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), &model.GuildConfig{
				GuildID: "guild-5",
				Prefix:  tc.prefix,
			})
			if err == nil {
				t.Fatal("expected validation error")
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.Code != "INVALID_PREFIX" {
				t.Errorf("code = %q, want INVALID_PREFIX", apiErr.Code)
			}
		})
	}
}

func TestUpdate_MultibytePrefix_WithinLimit(t *testing.T) {
	svc := NewService(&mockGuildConfigRepo{}, testLogger())

	// 5文字ちょうどのマルチバイト文字列は許容される
	_, err := svc.Update(context.Background(), &model.GuildConfig{
		GuildID: "guild-6",
		Prefix:  "ふれいみー",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestUpdate_MissingGuildID_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockGuildConfigRepo{}, testLogger())

	_, err := svc.Update(context.Background(), &model.GuildConfig{Prefix: "!"})
	if err == nil {
		t.Fatal("expected error for missing guild ID")
	}
}
