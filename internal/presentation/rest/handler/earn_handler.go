package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	earnapp "economy-server/internal/application/earn"
)

// EarnHandler 活動報酬と倍率ルールのハンドラー（管理API用）
type EarnHandler struct {
	earnService *earnapp.EarnApplicationService
}

// NewEarnHandler 新しいEarnHandlerを作成
func NewEarnHandler(earnService *earnapp.EarnApplicationService) *EarnHandler {
	return &EarnHandler{
		earnService: earnService,
	}
}

// Earn 活動報酬の付与
// スキップされた場合も200でskip_reasonを返す
func (h *EarnHandler) Earn(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var reqBody EarnRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.earnService.Earn(c.Request().Context(), &earnapp.EarnRequest{
		GuildID:   guildID,
		UserID:    reqBody.UserID,
		ChannelID: reqBody.ChannelID,
		RoleIDs:   reqBody.RoleIDs,
		Activity:  reqBody.Activity,
	})
	if err != nil {
		return err
	}

	out := EarnResponse{
		Credited:   resp.Credited,
		SkipReason: resp.SkipReason,
		Amount:     formatAmount(resp.Amount),
		Multiplier: resp.Multiplier,
	}
	if resp.Credited {
		out.BalanceAfter = formatAmount(resp.BalanceAfter)
	}
	return c.JSON(http.StatusOK, out)
}

// ResolveMultiplier 現在の倍率を確認する
// role_idsはカンマ区切りではなくクエリの繰り返しで渡す
func (h *EarnHandler) ResolveMultiplier(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	resp, err := h.earnService.ResolveMultiplier(c.Request().Context(), &earnapp.ResolveRequest{
		GuildID:   guildID,
		ChannelID: c.QueryParam("channel_id"),
		RoleIDs:   c.QueryParams()["role_id"],
		Activity:  c.QueryParam("activity"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MultiplierResponse{
		Excluded:   resp.Excluded,
		Multiplier: resp.Multiplier,
		RuleID:     resp.RuleID,
	})
}

// ListRules 倍率ルールと除外ルールの一覧
func (h *EarnHandler) ListRules(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	resp, err := h.earnService.ListRules(c.Request().Context(), &earnapp.ListRulesRequest{GuildID: guildID})
	if err != nil {
		return err
	}

	rules := make([]RuleResponse, len(resp.Rules))
	for i, r := range resp.Rules {
		rules[i] = toRuleResponse(r)
	}
	exclusions := make([]ExclusionResponse, len(resp.Exclusions))
	for i, e := range resp.Exclusions {
		exclusions[i] = ExclusionResponse{ID: e.ID, Scope: e.Scope, TargetID: e.TargetID}
	}
	return c.JSON(http.StatusOK, RulesResponse{Rules: rules, Exclusions: exclusions})
}

// CreateRule 倍率ルールの作成
func (h *EarnHandler) CreateRule(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var reqBody RuleRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rule, err := h.earnService.CreateRule(c.Request().Context(), &earnapp.CreateRuleRequest{
		GuildID:     guildID,
		Scope:       reqBody.Scope,
		TargetID:    reqBody.TargetID,
		Activity:    reqBody.Activity,
		Multiplier:  reqBody.Multiplier,
		StartMinute: reqBody.StartMinute,
		EndMinute:   reqBody.EndMinute,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRuleResponse(*rule))
}

// DeleteRule 倍率ルールの削除
func (h *EarnHandler) DeleteRule(c echo.Context) error {
	req, err := deleteRuleRequest(c)
	if err != nil {
		return err
	}
	if err := h.earnService.DeleteRule(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateExclusion 除外ルールの作成
func (h *EarnHandler) CreateExclusion(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var reqBody ExclusionRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	exclusion, err := h.earnService.CreateExclusion(c.Request().Context(), &earnapp.CreateExclusionRequest{
		GuildID:  guildID,
		Scope:    reqBody.Scope,
		TargetID: reqBody.TargetID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ExclusionResponse{ID: exclusion.ID, Scope: exclusion.Scope, TargetID: exclusion.TargetID})
}

// DeleteExclusion 除外ルールの削除
func (h *EarnHandler) DeleteExclusion(c echo.Context) error {
	req, err := deleteRuleRequest(c)
	if err != nil {
		return err
	}
	if err := h.earnService.DeleteExclusion(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func deleteRuleRequest(c echo.Context) (*earnapp.DeleteRuleRequest, error) {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	return &earnapp.DeleteRuleRequest{GuildID: guildID, ID: id}, nil
}

func toRuleResponse(r earnapp.RuleDTO) RuleResponse {
	return RuleResponse{
		ID:          r.ID,
		Scope:       r.Scope,
		TargetID:    r.TargetID,
		Activity:    r.Activity,
		Multiplier:  r.Multiplier,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
}
