package earn

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/wallet"
)

// ListRules ギルドの倍率ルールと除外ルールを取得
func (s *EarnApplicationService) ListRules(ctx context.Context, req *ListRulesRequest) (*ListRulesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.ListRules")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}

	rules, err := s.ruleRepo.FindRules(ctx, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find rules: %w", err)
	}
	exclusions, err := s.ruleRepo.FindExclusions(ctx, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find exclusions: %w", err)
	}

	resp := &ListRulesResponse{
		Rules:      make([]RuleDTO, 0, len(rules)),
		Exclusions: make([]ExclusionDTO, 0, len(exclusions)),
	}
	for _, r := range rules {
		resp.Rules = append(resp.Rules, toRuleDTO(r))
	}
	for _, e := range exclusions {
		resp.Exclusions = append(resp.Exclusions, ExclusionDTO{ID: e.ID, Scope: string(e.Scope), TargetID: e.TargetID})
	}
	return resp, nil
}

// CreateRule 倍率ルールを作成
func (s *EarnApplicationService) CreateRule(ctx context.Context, req *CreateRuleRequest) (*RuleDTO, error) {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.CreateRule")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("scope", req.Scope),
	)

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	rule := earn.MultiplierRule{
		GuildID:     req.GuildID,
		Scope:       earn.Scope(req.Scope),
		TargetID:    req.TargetID,
		Activity:    earn.ActivityType(req.Activity),
		Multiplier:  req.Multiplier,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
	}
	if err := rule.Validate(); err != nil {
		return nil, reject(span, err)
	}

	id, err := s.ruleRepo.CreateRule(ctx, rule)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to create multiplier rule", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	rule.ID = id

	s.logger.Info(ctx, "Multiplier rule created", map[string]interface{}{
		"guild_id":   req.GuildID,
		"rule_id":    id,
		"scope":      req.Scope,
		"multiplier": req.Multiplier,
	})
	dto := toRuleDTO(rule)
	return &dto, nil
}

// DeleteRule 倍率ルールを削除
func (s *EarnApplicationService) DeleteRule(ctx context.Context, req *DeleteRuleRequest) error {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.DeleteRule")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Int64("rule_id", req.ID),
	)
	return s.deleted(ctx, span, req, s.ruleRepo.DeleteRule(ctx, req.GuildID, req.ID))
}

// CreateExclusion 除外ルールを作成
func (s *EarnApplicationService) CreateExclusion(ctx context.Context, req *CreateExclusionRequest) (*ExclusionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.CreateExclusion")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("scope", req.Scope),
	)

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	exclusion := earn.Exclusion{GuildID: req.GuildID, Scope: earn.Scope(req.Scope), TargetID: req.TargetID}
	if err := exclusion.Validate(); err != nil {
		return nil, reject(span, err)
	}

	id, err := s.ruleRepo.CreateExclusion(ctx, exclusion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to create exclusion: %w", err)
	}

	s.logger.Info(ctx, "Exclusion created", map[string]interface{}{
		"guild_id":     req.GuildID,
		"exclusion_id": id,
		"scope":        req.Scope,
		"target_id":    req.TargetID,
	})
	return &ExclusionDTO{ID: id, Scope: req.Scope, TargetID: req.TargetID}, nil
}

// DeleteExclusion 除外ルールを削除
func (s *EarnApplicationService) DeleteExclusion(ctx context.Context, req *DeleteRuleRequest) error {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.DeleteExclusion")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Int64("exclusion_id", req.ID),
	)
	return s.deleted(ctx, span, req, s.ruleRepo.DeleteExclusion(ctx, req.GuildID, req.ID))
}

func (s *EarnApplicationService) deleted(ctx context.Context, span trace.Span, req *DeleteRuleRequest, err error) error {
	if err == nil {
		s.logger.Info(ctx, "Rule deleted", map[string]interface{}{
			"guild_id": req.GuildID,
			"id":       req.ID,
		})
		return nil
	}
	if errors.Is(err, earn.ErrRuleNotFound) {
		return reject(span, err)
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return fmt.Errorf("failed to delete rule: %w", err)
}

func toRuleDTO(r earn.MultiplierRule) RuleDTO {
	return RuleDTO{
		ID:          r.ID,
		Scope:       string(r.Scope),
		TargetID:    r.TargetID,
		Activity:    r.Activity.String(),
		Multiplier:  r.Multiplier,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
}
