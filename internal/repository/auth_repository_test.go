package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamna/auth-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindEmployeeByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "business_id", "role", "is_active", "is_verified", "email_verified_at", "created_at", "updated_at"}).
		AddRow("e1", "Owner", "owner@acme.com", "hash", "b1", string(models.RoleOwner), true, true, now, now, now)
	mock.ExpectQuery("SELECT .+ FROM employees WHERE email =").
		WithArgs("owner@acme.com").
		WillReturnRows(rows)

	employee, err := repo.FindEmployeeByEmail(context.Background(), "owner@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.com", employee.Email)
	assert.Equal(t, models.RoleOwner, employee.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBusinessByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectQuery("SELECT .+ FROM businesses WHERE email =").
		WithArgs("missing@acme.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBusinessByEmail(context.Background(), "missing@acme.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBusinessAndOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO businesses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO employees").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	business := &models.Business{Name: "Acme", Email: "hello@acme.com"}
	owner := &models.Employee{FullName: "Owner", Email: "owner@acme.com", PasswordHash: "hash", Role: models.RoleOwner}

	err := repo.CreateBusinessAndOwner(context.Background(), business, owner)
	require.NoError(t, err)
	assert.NotEmpty(t, business.ID)
	assert.Equal(t, business.ID, owner.BusinessID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBusinessAndOwnerDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO businesses").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "businesses_email_key"})
	mock.ExpectRollback()

	err := repo.CreateBusinessAndOwner(context.Background(),
		&models.Business{Name: "Acme", Email: "hello@acme.com"},
		&models.Employee{FullName: "Owner", Email: "owner@acme.com", Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrDuplicateBusinessEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBusinessAndOwnerDuplicateOwnerRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO businesses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO employees").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "employees_email_key"})
	mock.ExpectRollback()

	err := repo.CreateBusinessAndOwner(context.Background(),
		&models.Business{Name: "Acme", Email: "hello@acme.com"},
		&models.Employee{FullName: "Owner", Email: "owner@acme.com", Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrDuplicateEmployeeEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{
		JTI:        "jti-1",
		EmployeeID: "e1",
		ExpiresAt:  time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"jti", "employee_id", "expires_at", "revoked_at", "created_at"}).
		AddRow("jti-1", "e1", now.Add(time.Hour), nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT jti, employee_id, expires_at, revoked_at, created_at FROM refresh_tokens WHERE jti = $1 LIMIT 1")).
		WithArgs("jti-1").
		WillReturnRows(rows)

	rt, err := repo.FindRefreshToken(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "e1", rt.EmployeeID)
	assert.False(t, rt.Revoked())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE jti = $1 AND revoked_at IS NULL")).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RevokeRefreshToken(context.Background(), "jti-1", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshTokenAlreadyRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE jti = $1 AND revoked_at IS NULL")).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RevokeRefreshToken(context.Background(), "jti-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEmployeeVerified(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	mock.ExpectExec("UPDATE employees").
		WithArgs("e1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkEmployeeVerified(context.Background(), "e1", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEmployeeWithBusiness(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuthRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "business_id", "role", "is_active", "is_verified", "email_verified_at", "created_at", "updated_at", "business_name"}).
		AddRow("e1", "Owner", "owner@acme.com", "hash", "b1", string(models.RoleOwner), true, true, now, now, now, "Acme")
	mock.ExpectQuery("SELECT e.id, .+ FROM employees e").
		WithArgs("e1").
		WillReturnRows(rows)

	employee, business, err := repo.FindEmployeeWithBusiness(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.com", employee.Email)
	assert.Equal(t, "Acme", business.Name)
	assert.Equal(t, "b1", business.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
