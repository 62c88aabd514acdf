package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/pkg/database"
)

// Duplicate errors surfaced when an insert loses a uniqueness race. The
// database constraints are the authority; callers translate these into
// conflict responses.
var (
	ErrDuplicateBusinessEmail  = errors.New("business email already exists")
	ErrDuplicateBusinessDomain = errors.New("business domain already exists")
	ErrDuplicateEmployeeEmail  = errors.New("employee email already exists")
)

// AuthRepository provides database access for businesses, employees and
// refresh-token session records.
type AuthRepository struct {
	db *sqlx.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sqlx.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

const businessColumns = `id, name, email, industry, description, domain_url, created_at, updated_at`

// FindBusinessByEmail returns a business by its contact email.
func (r *AuthRepository) FindBusinessByEmail(ctx context.Context, email string) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE email = $1 LIMIT 1`
	var business models.Business
	if err := r.db.GetContext(ctx, &business, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find business by email: %w", err)
	}
	return &business, nil
}

// FindBusinessByDomain returns a business by its domain URL.
func (r *AuthRepository) FindBusinessByDomain(ctx context.Context, domainURL string) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE domain_url = $1 LIMIT 1`
	var business models.Business
	if err := r.db.GetContext(ctx, &business, query, domainURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find business by domain: %w", err)
	}
	return &business, nil
}

const employeeColumns = `id, full_name, email, password_hash, business_id, role, is_active, is_verified, email_verified_at, created_at, updated_at`

// FindEmployeeByEmail returns an employee by email. The lookup is
// case-sensitive; emails are stored exactly as given at registration.
func (r *AuthRepository) FindEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email = $1 LIMIT 1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by email: %w", err)
	}
	return &employee, nil
}

// FindEmployeeByID returns an employee by identifier.
func (r *AuthRepository) FindEmployeeByID(ctx context.Context, id string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 LIMIT 1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by id: %w", err)
	}
	return &employee, nil
}

// employeeWithBusinessRow flattens the employee/business join.
type employeeWithBusinessRow struct {
	models.Employee
	BusinessName string `db:"business_name"`
}

// FindEmployeeWithBusiness returns an employee and its owning business in a
// single joined query, for principal resolution.
func (r *AuthRepository) FindEmployeeWithBusiness(ctx context.Context, id string) (*models.Employee, *models.Business, error) {
	const query = `SELECT e.id, e.full_name, e.email, e.password_hash, e.business_id, e.role,
		e.is_active, e.is_verified, e.email_verified_at, e.created_at, e.updated_at,
		b.name AS business_name
		FROM employees e
		JOIN businesses b ON b.id = e.business_id
		WHERE e.id = $1 LIMIT 1`
	var row employeeWithBusinessRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("find employee with business: %w", err)
	}
	business := &models.Business{ID: row.BusinessID, Name: row.BusinessName}
	return &row.Employee, business, nil
}

// CreateBusinessAndOwner inserts the business and its owner employee in one
// transaction: either both rows persist or neither does. Uniqueness races
// lost to a concurrent registration surface as the matching duplicate error.
func (r *AuthRepository) CreateBusinessAndOwner(ctx context.Context, business *models.Business, owner *models.Employee) error {
	now := time.Now().UTC()
	if business.ID == "" {
		business.ID = uuid.NewString()
	}
	business.CreatedAt = now
	business.UpdatedAt = now

	if owner.ID == "" {
		owner.ID = uuid.NewString()
	}
	owner.BusinessID = business.ID
	owner.CreatedAt = now
	owner.UpdatedAt = now

	err := database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const businessInsert = `INSERT INTO businesses (id, name, email, industry, description, domain_url, created_at, updated_at)
			VALUES (:id, :name, :email, :industry, :description, :domain_url, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, businessInsert, business); err != nil {
			return fmt.Errorf("create business: %w", err)
		}

		const employeeInsert = `INSERT INTO employees (id, full_name, email, password_hash, business_id, role, is_active, is_verified, email_verified_at, created_at, updated_at)
			VALUES (:id, :full_name, :email, :password_hash, :business_id, :role, :is_active, :is_verified, :email_verified_at, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, employeeInsert, owner); err != nil {
			return fmt.Errorf("create owner: %w", err)
		}

		return nil
	})
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "businesses_email_key"):
			return ErrDuplicateBusinessEmail
		case database.IsUniqueViolation(err, "businesses_domain_url_key"):
			return ErrDuplicateBusinessDomain
		case database.IsUniqueViolation(err, "employees_email_key"):
			return ErrDuplicateEmployeeEmail
		}
		return err
	}
	return nil
}

// MarkEmployeeVerified activates an employee account after email
// verification. Idempotent: re-verifying an active account is a no-op.
func (r *AuthRepository) MarkEmployeeVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `UPDATE employees
		SET is_active = TRUE, is_verified = TRUE,
			email_verified_at = COALESCE(email_verified_at, $2), updated_at = $2
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verifiedAt); err != nil {
		return fmt.Errorf("mark employee verified: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh-token session record keyed by jti.
func (r *AuthRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (jti, employee_id, expires_at, revoked_at, created_at)
		VALUES (:jti, :employee_id, :expires_at, :revoked_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a session record by jti.
func (r *AuthRepository) FindRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error) {
	const query = `SELECT jti, employee_id, expires_at, revoked_at, created_at FROM refresh_tokens WHERE jti = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, jti); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a session revoked. The guard on revoked_at makes
// the update atomic: exactly one logout wins, any later attempt reports
// sql.ErrNoRows. Rows are never deleted.
func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, jti string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked_at = $2 WHERE jti = $1 AND revoked_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, jti, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
