package directory_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"go-twk/internal/directory"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDirectoryTest(t *testing.T) (directory.Directory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return directory.NewStore(gormDB), mock
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	dir, mock := setupDirectoryTest(t)

	hire := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "full_name", "department_id", "department_name", "hire_date", "salary_tier", "base_salary"}).
		AddRow("emp-1", "Ana", "dep-1", "Engineering", hire, 3, int64(500000)).
		AddRow("emp-2", "Budi", nil, nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "employees"`)).
		WillReturnRows(rows)

	got, err := dir.List(ctx, "company-1", []string{"emp-1", "emp-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "dep-1", got[0].DepartmentID)
	assert.Equal(t, "Engineering", got[0].DepartmentName)
	assert.Equal(t, 3, got[0].SalaryTier)
	assert.Equal(t, "5000", got[0].BaseSalary.String())
	assert.Equal(t, 365, got[0].TenureDays(hire.AddDate(1, 0, 0)))

	assert.Empty(t, got[1].DepartmentID)
	assert.True(t, got[1].BaseSalary.IsZero())
	assert.Zero(t, got[1].TenureDays(time.Now()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListEmpty(t *testing.T) {
	dir, mock := setupDirectoryTest(t)

	got, err := dir.List(context.Background(), "company-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
