package settings

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// SettingsApplicationService 経済設定アプリケーションサービス
type SettingsApplicationService struct {
	settingsRepo settings.SettingsRepository
	logger       *otelinfra.Logger
	tracer       trace.Tracer
}

// NewSettingsApplicationService 新しいSettingsApplicationServiceを作成
func NewSettingsApplicationService(settingsRepo settings.SettingsRepository, logger *otelinfra.Logger) *SettingsApplicationService {
	return &SettingsApplicationService{
		settingsRepo: settingsRepo,
		logger:       logger,
		tracer:       otel.Tracer("settings-service"),
	}
}

// GetSettings ギルドの設定を取得。保存されていない場合は既定値
func (s *SettingsApplicationService) GetSettings(ctx context.Context, req *GetSettingsRequest) (*SettingsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SettingsApplicationService.GetSettings")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	stored, err := s.settingsRepo.FindByGuild(ctx, req.GuildID)
	if errors.Is(err, settings.ErrSettingsNotFound) {
		return &SettingsResponse{GuildID: req.GuildID, Settings: settings.Default(), Default: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to find settings", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to find settings: %w", err)
	}
	return &SettingsResponse{GuildID: req.GuildID, Settings: *stored}, nil
}

// UpdateSettings 設定を検証して保存
func (s *SettingsApplicationService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SettingsApplicationService.UpdateSettings")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	err := wallet.ValidateGuildID(req.GuildID)
	if err == nil {
		err = req.Settings.Validate()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Warn(ctx, "Settings rejected", map[string]interface{}{
			"guild_id": req.GuildID,
			"error":    err.Error(),
		})
		return nil, err
	}

	if err := s.settingsRepo.Save(ctx, req.GuildID, req.Settings); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to save settings", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info(ctx, "Settings updated", map[string]interface{}{
		"guild_id":            req.GuildID,
		"monthly_tax_enabled": req.Settings.MonthlyTaxEnabled,
		"timezone":            req.Settings.Timezone,
	})
	return &SettingsResponse{GuildID: req.GuildID, Settings: req.Settings}, nil
}
