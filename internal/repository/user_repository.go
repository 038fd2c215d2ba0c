package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cinevault/cinevault-api/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, mobile_number, role, device_token, notification_enabled, reset_password_token, reset_password_sent_at, created_at, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByMobile returns a user by mobile number.
func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE mobile_number = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, mobile); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by mobile: %w", err)
	}
	return &user, nil
}

// FindByResetToken returns a user holding the given password reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_password_token = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

// CreateWithSubscription inserts a user and their default basic subscription
// in a single transaction so registration never leaves a user without one.
func (r *UserRepository) CreateWithSubscription(ctx context.Context, user *models.User, sub *models.Subscription) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.UserID = user.ID
	sub.CreatedAt = now
	sub.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const userInsert = `INSERT INTO users (id, email, password_hash, first_name, last_name, mobile_number, role, notification_enabled, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :mobile_number, :role, :notification_enabled, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userInsert, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	const subInsert = `INSERT INTO subscriptions (id, user_id, plan_type, status, created_at, updated_at)
		VALUES (:id, :user_id, :plan_type, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, subInsert, sub); err != nil {
		return fmt.Errorf("create default subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration tx: %w", err)
	}
	return nil
}

// Update persists mutable profile fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET email = :email, first_name = :first_name, last_name = :last_name, mobile_number = :mobile_number, role = :role,
		device_token = :device_token, notification_enabled = :notification_enabled,
		reset_password_token = :reset_password_token, reset_password_sent_at = :reset_password_sent_at,
		password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateRole changes a user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	const query = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearDeviceToken detaches the push device token from a user.
func (r *UserRepository) ClearDeviceToken(ctx context.Context, id string) error {
	const query = `UPDATE users SET device_token = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear device token: %w", err)
	}
	return nil
}

// SetDeviceToken attaches a device token, stealing it from any other user
// so at most one user holds a given token.
func (r *UserRepository) SetDeviceToken(ctx context.Context, id, token string, notificationEnabled bool) error {
	now := time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin device tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE users SET device_token = NULL, updated_at = $2 WHERE device_token = $1`, token, now); err != nil {
		return fmt.Errorf("release device token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET device_token = $2, notification_enabled = $3, updated_at = $4 WHERE id = $1`, id, token, notificationEnabled, now); err != nil {
		return fmt.Errorf("set device token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit device tx: %w", err)
	}
	return nil
}

// Delete removes a user; subscriptions, reviews, orders and blacklisted
// tokens cascade via foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(first_name || ' ' || last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// PremiumRecipients returns users with notifications enabled, a device token,
// and a currently premium subscription.
func (r *UserRepository) PremiumRecipients(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u
		WHERE u.notification_enabled = TRUE AND u.device_token IS NOT NULL
		AND EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = u.id AND s.plan_type = 'premium' AND s.status = 'active'
			AND (s.expires_at IS NULL OR s.expires_at > NOW())
		)`, prefixColumns("u", userColumns))
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list premium recipients: %w", err)
	}
	return users, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
