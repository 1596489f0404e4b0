package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type uniqueRow struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", fmt.Errorf("save: %w", gorm.ErrDuplicatedKey), true},
		{"pg_code", &pgconn.PgError{Code: "23505"}, true},
		{"mysql", errors.New("Error 1062: Duplicate entry"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: activities.idempotency_key"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	for _, typ := range []string{TypePostgres, TypeMySQL, TypeSQLite, TypeSQLiteMemory} {
		d, err := Dialect(Config{Type: typ, Host: "localhost", Port: "5432", Name: "greentrack"})
		require.NoError(t, err, typ)
		assert.NotNil(t, d, typ)
	}
}

func TestNewTestDetectsDuplicates(t *testing.T) {
	conn, err := NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&uniqueRow{}))

	require.NoError(t, conn.Create(&uniqueRow{ID: 1, Code: "a"}).Error)
	err = conn.Create(&uniqueRow{ID: 2, Code: "a"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyErr(err))
}

func TestNewTestIsolatesRepeatedNames(t *testing.T) {
	first, err := NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, first.AutoMigrate(&uniqueRow{}))
	require.NoError(t, first.Create(&uniqueRow{ID: 1, Code: "a"}).Error)

	second, err := NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, second.AutoMigrate(&uniqueRow{}))
	require.NoError(t, second.Create(&uniqueRow{ID: 1, Code: "a"}).Error)

	var count int64
	require.NoError(t, second.Model(&uniqueRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
