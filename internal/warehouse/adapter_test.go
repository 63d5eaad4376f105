package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()

	a := NewAdapterFromDB(db)
	defer a.Close()

	require.NoError(t, a.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_PingSurfacesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	driverErr := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(driverErr)

	a := NewAdapterFromDB(db)
	defer a.Close()

	require.ErrorIs(t, a.Ping(context.Background()), driverErr)
}
