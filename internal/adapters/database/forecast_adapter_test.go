package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
)

func TestForecastAdapter_ListForecast(t *testing.T) {
	newAdapter := func(t *testing.T) (*ForecastAdapter, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return NewForecastAdapter(postgres.NewClientFromDB(db)).(*ForecastAdapter), mock
	}

	t.Run("returns rows in year order with nullable yoy", func(t *testing.T) {
		adapter, mock := newAdapter(t)

		mock.ExpectQuery(`FROM "region_forecast" WHERE \(\("district" = '강남구'\).+"year" BETWEEN 2024 AND 2026.+ORDER BY "year" ASC`).
			WillReturnRows(sqlmock.NewRows([]string{"year", "predicted_child_user", "pred_child_user_yoy_pct"}).
				AddRow(2024, 1200, nil).
				AddRow(2025, 1250, 4.2))

		rows, err := adapter.ListForecast(context.Background(), "강남구", 2024, 2026)

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Nil(t, rows[0].YoYPct)
		require.NotNil(t, rows[1].YoYPct)
		assert.InDelta(t, 4.2, *rows[1].YoYPct, 1e-9)
	})

	t.Run("empty range yields an empty slice", func(t *testing.T) {
		adapter, mock := newAdapter(t)

		mock.ExpectQuery(`FROM "region_forecast"`).
			WillReturnRows(sqlmock.NewRows([]string{"year", "predicted_child_user", "pred_child_user_yoy_pct"}))

		rows, err := adapter.ListForecast(context.Background(), "강남구", 2030, 2031)

		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
