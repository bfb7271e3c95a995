package handler

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-server/internal/application/apptest"
	"economy-server/internal/domain/wallet"
)

const (
	generalChannel = "400000000000000001"
	mutedChannel   = "400000000000000002"
	boosterRole    = "300000000000000010"
)

func (env *testEnv) createRule(t *testing.T, req RuleRequest) RuleResponse {
	t.Helper()
	rec := serve(t, env.earn.CreateRule, adminCall(http.MethodPost, "/rules", "/rules", req))
	assertStatus(t, http.StatusCreated, rec)
	return decode[RuleResponse](t, rec)
}

func (env *testEnv) resolve(t *testing.T, query string) MultiplierResponse {
	t.Helper()
	rec := serve(t, env.earn.ResolveMultiplier, adminCall(http.MethodGet, "/multiplier", "/multiplier?"+query, nil))
	assertStatus(t, http.StatusOK, rec)
	return decode[MultiplierResponse](t, rec)
}

func TestEarnHandler_Earn(t *testing.T) {
	env := newTestEnv(t)
	env.createRule(t, RuleRequest{Scope: "channel", TargetID: generalChannel, Multiplier: 200})
	rec := serve(t, env.earn.CreateExclusion, adminCall(http.MethodPost, "/exclusions", "/exclusions",
		ExclusionRequest{Scope: "channel", TargetID: mutedChannel}))
	assertStatus(t, http.StatusCreated, rec)

	earnCall := func(req EarnRequest) call {
		return adminCall(http.MethodPost, "/earn", "/earn", req)
	}

	t.Run("正常系: 倍率を適用して付与", func(t *testing.T) {
		rec := serve(t, env.earn.Earn, earnCall(EarnRequest{UserID: apptest.Alice, ChannelID: generalChannel, Activity: "text"}))
		assertStatus(t, http.StatusOK, rec)
		resp := decode[EarnResponse](t, rec)
		require.True(t, resp.Credited)
		assert.Equal(t, uint32(200), resp.Multiplier)

		amount, err := strconv.ParseUint(resp.Amount, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, amount, uint64(2))
		assert.LessOrEqual(t, amount, uint64(10))
		assert.Zero(t, amount%2)
		assert.Equal(t, resp.Amount, resp.BalanceAfter)
		assert.Equal(t, amount, env.f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
	})

	t.Run("正常系: クールダウン中はスキップ", func(t *testing.T) {
		rec := serve(t, env.earn.Earn, earnCall(EarnRequest{UserID: apptest.Alice, ChannelID: generalChannel, Activity: "text"}))
		assertStatus(t, http.StatusOK, rec)
		resp := decode[EarnResponse](t, rec)
		assert.False(t, resp.Credited)
		assert.Equal(t, "cooldown", resp.SkipReason)
		assert.Empty(t, resp.BalanceAfter)
	})

	t.Run("正常系: 除外チャンネル", func(t *testing.T) {
		rec := serve(t, env.earn.Earn, earnCall(EarnRequest{UserID: apptest.Bob, ChannelID: mutedChannel, Activity: "voice"}))
		assertStatus(t, http.StatusOK, rec)
		resp := decode[EarnResponse](t, rec)
		assert.False(t, resp.Credited)
		assert.Equal(t, "excluded", resp.SkipReason)
		assert.Equal(t, uint64(0), env.f.Balance(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy))
	})

	t.Run("異常系: 不明な活動種別", func(t *testing.T) {
		rec := serve(t, env.earn.Earn, earnCall(EarnRequest{UserID: apptest.Bob, ChannelID: generalChannel, Activity: "reaction"}))
		assertStatus(t, http.StatusBadRequest, rec)
		assert.Equal(t, "INVALID_ACTIVITY_TYPE", decode[errorBody](t, rec).Code)
	})

	t.Run("異常系: ユーザーID不正", func(t *testing.T) {
		rec := serve(t, env.earn.Earn, earnCall(EarnRequest{UserID: "bob", ChannelID: generalChannel, Activity: "text"}))
		assertStatus(t, http.StatusBadRequest, rec)
		assert.Equal(t, "INVALID_USER_ID", decode[errorBody](t, rec).Code)
	})
}

func TestEarnHandler_Rules(t *testing.T) {
	env := newTestEnv(t)
	channelRule := env.createRule(t, RuleRequest{Scope: "channel", TargetID: generalChannel, Multiplier: 150})
	roleRule := env.createRule(t, RuleRequest{Scope: "role", TargetID: boosterRole, Activity: "text", Multiplier: 200})

	t.Run("正常系: 該当ルールの最大倍率", func(t *testing.T) {
		resp := env.resolve(t, "activity=text&channel_id="+generalChannel+"&role_id=1&role_id="+boosterRole)
		assert.False(t, resp.Excluded)
		assert.Equal(t, uint32(200), resp.Multiplier)
		require.NotNil(t, resp.RuleID)
		assert.Equal(t, roleRule.ID, *resp.RuleID)
	})

	t.Run("正常系: 活動種別が違うルールは対象外", func(t *testing.T) {
		resp := env.resolve(t, "activity=voice&channel_id="+generalChannel+"&role_id="+boosterRole)
		assert.Equal(t, uint32(150), resp.Multiplier)
	})

	t.Run("正常系: 該当なしは基準倍率", func(t *testing.T) {
		resp := env.resolve(t, "activity=text&channel_id="+mutedChannel)
		assert.Equal(t, uint32(100), resp.Multiplier)
		assert.Nil(t, resp.RuleID)
	})

	t.Run("異常系: 無効なルール", func(t *testing.T) {
		for _, req := range []RuleRequest{
			{Scope: "channel", TargetID: generalChannel, Multiplier: 0},
			{Scope: "channel", TargetID: generalChannel, Multiplier: 1001},
			{Scope: "role", Multiplier: 150},
			{Scope: "hot_time", StartMinute: 600, EndMinute: 600, Multiplier: 150},
			{Scope: "weekend", Multiplier: 150},
		} {
			rec := serve(t, env.earn.CreateRule, adminCall(http.MethodPost, "/rules", "/rules", req))
			assertStatus(t, http.StatusBadRequest, rec)
			assert.Equal(t, "INVALID_RULE", decode[errorBody](t, rec).Code)
		}
	})

	t.Run("正常系: 除外が優先される", func(t *testing.T) {
		rec := serve(t, env.earn.CreateExclusion, adminCall(http.MethodPost, "/exclusions", "/exclusions",
			ExclusionRequest{Scope: "role", TargetID: boosterRole}))
		assertStatus(t, http.StatusCreated, rec)
		exclusion := decode[ExclusionResponse](t, rec)

		resp := env.resolve(t, "activity=text&channel_id="+generalChannel+"&role_id="+boosterRole)
		assert.True(t, resp.Excluded)

		rec = serve(t, env.earn.ListRules, adminCall(http.MethodGet, "/rules", "/rules", nil))
		assertStatus(t, http.StatusOK, rec)
		list := decode[RulesResponse](t, rec)
		assert.Len(t, list.Rules, 2)
		assert.Len(t, list.Exclusions, 1)

		id := strconv.FormatInt(exclusion.ID, 10)
		rec = serve(t, env.earn.DeleteExclusion, adminCall(http.MethodDelete, "/exclusions/:id", "/exclusions/"+id, nil))
		assertStatus(t, http.StatusNoContent, rec)
	})

	t.Run("正常系: ルール削除", func(t *testing.T) {
		id := strconv.FormatInt(channelRule.ID, 10)
		rec := serve(t, env.earn.DeleteRule, adminCall(http.MethodDelete, "/rules/:id", "/rules/"+id, nil))
		assertStatus(t, http.StatusNoContent, rec)

		rec = serve(t, env.earn.DeleteRule, adminCall(http.MethodDelete, "/rules/:id", "/rules/"+id, nil))
		assertStatus(t, http.StatusNotFound, rec)
		assert.Equal(t, "RULE_NOT_FOUND", decode[errorBody](t, rec).Code)

		resp := env.resolve(t, "activity=voice&channel_id="+generalChannel)
		assert.Equal(t, uint32(100), resp.Multiplier)
	})
}
