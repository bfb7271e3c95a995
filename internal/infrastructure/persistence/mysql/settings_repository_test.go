package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"economy-server/internal/domain/settings"
)

func TestSettingsRepository_FindByGuild(t *testing.T) {
	t.Run("正常系: 保存されていない項目はデフォルト値になる", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &SettingsRepository{db: db, tracer: otel.Tracer("test")}

		mock.ExpectQuery(`SELECT settings FROM currency_settings`).
			WithArgs("100").
			WillReturnRows(sqlmock.NewRows([]string{"settings"}).
				AddRow([]byte(`{"monthly_tax_enabled":true,"topy":{"display_name":"Coin","min_transfer":10,"transfer_fee_bps":50}}`)))

		s, err := repo.FindByGuild(context.Background(), "100")
		require.NoError(t, err)
		assert.True(t, s.MonthlyTaxEnabled)
		assert.Equal(t, uint32(50), s.Topy.TransferFeeBps)
		assert.Equal(t, settings.Default().Ruby, s.Ruby)
		assert.Equal(t, settings.DefaultTimezone, s.Timezone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 設定が見つからない", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &SettingsRepository{db: db, tracer: otel.Tracer("test")}

		mock.ExpectQuery(`SELECT settings FROM currency_settings`).
			WithArgs("100").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByGuild(context.Background(), "100")
		assert.ErrorIs(t, err, settings.ErrSettingsNotFound)
	})
}

func TestSettingsRepository_Save(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &SettingsRepository{db: db, tracer: otel.Tracer("test")}

	s := settings.Default()
	s.MonthlyTaxEnabled = true
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO currency_settings .* ON DUPLICATE KEY UPDATE`).
		WithArgs("100", raw).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), "100", s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_ListGuildIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &SettingsRepository{db: db, tracer: otel.Tracer("test")}

	mock.ExpectQuery(`SELECT guild_id FROM currency_settings`).
		WillReturnRows(sqlmock.NewRows([]string{"guild_id"}).AddRow("100").AddRow("101"))

	ids, err := repo.ListGuildIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "101"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
