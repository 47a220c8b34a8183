package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/FACorreiaa/go-authify/app/observability/metrics"
	"github.com/FACorreiaa/go-authify/internal/types"
)

var _ UserRepo = (*SQLiteUserRepo)(nil)

// SQLiteUserRepo stores users in a single SQLite file. Ids are TEXT and
// timestamps are unix milliseconds.
type SQLiteUserRepo struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.AppMetrics
	now     func() time.Time
}

func NewSQLiteUserRepo(db *sql.DB, m *metrics.AppMetrics, logger *slog.Logger) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db, logger: logger, metrics: m, now: time.Now}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func isUniqueConstraintError(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func scanSQLiteUser(row rowScanner) (*types.User, error) {
	var (
		u                    types.User
		id, role             string
		fullName             sql.NullString
		createdAt            int64
		updatedAt, lastLogin sql.NullInt64
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &fullName, &role,
		&u.IsActive, &u.IsVerified, &createdAt, &updatedAt, &lastLogin); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", id, err)
	}
	u.ID = parsed
	u.Role = types.Role(role)
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = nullMillis(updatedAt)
	u.LastLoginAt = nullMillis(lastLogin)
	return &u, nil
}

func (r *SQLiteUserRepo) queryOne(ctx context.Context, op, query string, args ...any) (*types.User, error) {
	start := time.Now()
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.DBQuery(ctx, op, start, nil)
		return nil, types.ErrNotFound
	}
	r.metrics.DBQuery(ctx, op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r *SQLiteUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return r.queryOne(ctx, "find_by_id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
}

func (r *SQLiteUserRepo) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.queryOne(ctx, "find_by_email",
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, types.NormalizeEmail(email))
}

func (r *SQLiteUserRepo) Create(ctx context.Context, nu types.NewUser) (*types.User, error) {
	role := nu.Role
	if role == "" {
		role = types.RoleUser
	}
	id := uuid.New()
	var fullName sql.NullString
	if nu.FullName != nil {
		fullName = sql.NullString{String: *nu.FullName, Valid: true}
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, is_active, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), types.NormalizeEmail(nu.Email), nu.PasswordHash, fullName, string(role),
		nu.IsActive, nu.IsVerified, toMillis(r.now()))
	if isUniqueConstraintError(err) {
		r.metrics.DBQuery(ctx, "create", start, nil)
		return nil, types.ErrDuplicateKey
	}
	r.metrics.DBQuery(ctx, "create", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *SQLiteUserRepo) Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*types.User, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var setClauses []string
	var args []any
	add := func(column string, value any) {
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}
	if patch.Email != nil {
		add("email", types.NormalizeEmail(*patch.Email))
	}
	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.IsVerified != nil {
		add("is_verified", *patch.IsVerified)
	}
	if patch.LastLoginAt != nil {
		add("last_login_at", toMillis(*patch.LastLoginAt))
	}
	add("updated_at", toMillis(r.now()))
	args = append(args, id.String())

	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if isUniqueConstraintError(err) {
		r.metrics.DBQuery(ctx, "update", start, nil)
		return nil, types.ErrDuplicateKey
	}
	r.metrics.DBQuery(ctx, "update", start, err)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, types.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *SQLiteUserRepo) List(ctx context.Context, params types.ListUsersParams) ([]types.User, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`, params.Limit, params.Skip)
	r.metrics.DBQuery(ctx, "list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0, params.Limit)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
