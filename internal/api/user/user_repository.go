package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-authify/app/observability/metrics"
	"github.com/FACorreiaa/go-authify/internal/api/auth"
	"github.com/FACorreiaa/go-authify/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo is the user persistence contract. It is the auth core's
// UserStore plus the listing the admin endpoints need.
type UserRepo interface {
	auth.UserStore

	// List returns users ordered by creation time, oldest first.
	List(ctx context.Context, params types.ListUsersParams) ([]types.User, error)
}

// DBTX is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUniqueViolation = "23505"

const userColumns = `id, email, password_hash, full_name, role, is_active, is_verified, created_at, updated_at, last_login_at`

type PostgresUserRepo struct {
	logger  *slog.Logger
	pgpool  DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresUserRepo(pgpool DBTX, m *metrics.AppMetrics, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger:  logger,
		pgpool:  pgpool,
		metrics: m,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*types.User, error) {
	var u types.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role,
		&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt); err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	return &u, nil
}

func (r *PostgresUserRepo) span(ctx context.Context, name, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "users"),
	}, attrs...)
	return otel.Tracer("UserRepo").Start(ctx, name, trace.WithAttributes(attrs...))
}

// mapPgError translates driver errors into the shared sentinels.
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", types.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

func (r *PostgresUserRepo) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	// missing rows and uniqueness are outcomes, not database failures
	failed := err != nil && !errors.Is(err, types.ErrNotFound) && !errors.Is(err, types.ErrDuplicateKey)
	if failed {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		r.metrics.DBQuery(ctx, op, start, err)
		return
	}
	r.metrics.DBQuery(ctx, op, start, nil)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (u *types.User, err error) {
	ctx, span := r.span(ctx, "FindByID", "SELECT", attribute.String("db.user.id", id.String()))
	defer span.End()
	defer func(start time.Time) { r.finish(ctx, span, "find_by_id", start, err) }(time.Now())

	u, err = scanUser(r.pgpool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (u *types.User, err error) {
	ctx, span := r.span(ctx, "FindByEmail", "SELECT")
	defer span.End()
	defer func(start time.Time) { r.finish(ctx, span, "find_by_email", start, err) }(time.Now())

	u, err = scanUser(r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, types.NormalizeEmail(email)))
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, nu types.NewUser) (u *types.User, err error) {
	ctx, span := r.span(ctx, "Create", "INSERT")
	defer span.End()
	defer func(start time.Time) { r.finish(ctx, span, "create", start, err) }(time.Now())

	role := nu.Role
	if role == "" {
		role = types.RoleUser
	}
	u, err = scanUser(r.pgpool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, is_active, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING `+userColumns,
		uuid.New(), types.NormalizeEmail(nu.Email), nu.PasswordHash, nu.FullName, string(role), nu.IsActive, nu.IsVerified))
	if err != nil {
		err = mapPgError(err)
		if !errors.Is(err, types.ErrDuplicateKey) {
			r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("db.user.id", u.ID.String()))
	return u, nil
}

// Update applies the non-nil fields of patch. An empty patch returns the
// current row unchanged.
func (r *PostgresUserRepo) Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*types.User, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	ctx, span := r.span(ctx, "Update", "UPDATE", attribute.String("db.user.id", id.String()))
	defer span.End()
	var err error
	defer func(start time.Time) { r.finish(ctx, span, "update", start, err) }(time.Now())

	var setClauses []string
	var args []interface{}
	argID := 1

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
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
		add("last_login_at", *patch.LastLoginAt)
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(setClauses, ", "), argID)

	u, scanErr := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if scanErr != nil {
		err = mapPgError(scanErr)
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, params types.ListUsersParams) (users []types.User, err error) {
	ctx, span := r.span(ctx, "List", "SELECT",
		attribute.Int("db.skip", params.Skip), attribute.Int("db.limit", params.Limit))
	defer span.End()
	defer func(start time.Time) { r.finish(ctx, span, "list", start, err) }(time.Now())

	rows, err := r.pgpool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`, params.Skip, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users = make([]types.User, 0, params.Limit)
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan user: %w", scanErr)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
