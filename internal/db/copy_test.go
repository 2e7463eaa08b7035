package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRows_EmptyRows(t *testing.T) {
	n, err := CopyRows(context.TODO(), nil, "monthly_ridership", []string{"year_month", "riders"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyRows_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"monthly_ridership"}, []string{"year_month", "station_key", "riders"}).WillReturnResult(3)

	rows := [][]any{
		{"2024-01", "balderas", 100},
		{"2024-01", "pino suarez", 80},
		{"2024-02", "balderas", 120},
	}
	n, err := CopyRows(context.Background(), mock, "monthly_ridership", []string{"year_month", "station_key", "riders"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"stations"}, []string{"station_key"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"balderas"}}
	_, err = CopyRows(context.Background(), mock, "stations", []string{"station_key"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO stations")
	assert.NoError(t, mock.ExpectationsWereMet())
}
