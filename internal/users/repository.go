package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waari-travel/waari-erp/internal/platform/db"
	"github.com/waari-travel/waari-erp/internal/shared"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var userColumns = []string{
	"u.user_id", "u.first_name", "u.last_name", "u.email", "u.mobile", "u.role_id",
	"COALESCE(r.role_name, '')", "u.is_active", "u.client_code", "u.created_at", "u.updated_at",
}

// Repository implements Store using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func selectUsers() squirrel.SelectBuilder {
	return psql.Select(userColumns...).From("users u").LeftJoin("roles r ON r.role_id = u.role_id")
}

// Create inserts the user and returns the stored row.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	query, args, err := psql.Insert("users").
		Columns("first_name", "last_name", "email", "mobile", "password_hash", "role_id", "is_active", "client_code").
		Values(u.FirstName, u.LastName, u.Email, u.Mobile, passwordHash, u.RoleID, u.Active, u.ClientCode).
		Suffix("RETURNING user_id").ToSql()
	if err != nil {
		return User{}, fmt.Errorf("to sql: %w", err)
	}
	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return User{}, mapWriteError(err)
	}
	return r.Get(ctx, id, u.ClientCode)
}

// byID matches one user, limited to clientCode when it is set.
func byID(column, tenantColumn string, userID int64, clientCode string) squirrel.And {
	where := squirrel.And{squirrel.Eq{column: userID}}
	if clientCode != "" {
		where = append(where, squirrel.Eq{tenantColumn: clientCode})
	}
	return where
}

// Get fetches a user by id within the tenant.
func (r *Repository) Get(ctx context.Context, userID int64, clientCode string) (User, error) {
	query, args, err := selectUsers().Where(byID("u.user_id", "u.client_code", userID, clientCode)).ToSql()
	if err != nil {
		return User{}, fmt.Errorf("to sql: %w", err)
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// Update applies the non-nil fields of patch. A new password hash also clears
// the stored token.
func (r *Repository) Update(ctx context.Context, userID int64, clientCode string, patch Patch) (User, error) {
	ub := psql.Update("users").Set("updated_at", squirrel.Expr("NOW()"))
	if patch.FirstName != nil {
		ub = ub.Set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		ub = ub.Set("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		ub = ub.Set("email", *patch.Email)
	}
	if patch.Mobile != nil {
		ub = ub.Set("mobile", *patch.Mobile)
	}
	if patch.RoleID != nil {
		ub = ub.Set("role_id", *patch.RoleID)
	}
	if patch.PasswordHash != nil {
		ub = ub.Set("password_hash", *patch.PasswordHash).Set("token", nil)
	}
	query, args, err := ub.Where(byID("user_id", "client_code", userID, clientCode)).ToSql()
	if err != nil {
		return User{}, fmt.Errorf("to sql: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.ErrNotFound
	}
	return r.Get(ctx, userID, clientCode)
}

// SetStatus flips is_active; deactivation clears the token.
func (r *Repository) SetStatus(ctx context.Context, userID int64, clientCode string, active bool) (User, error) {
	ub := psql.Update("users").
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("NOW()"))
	if !active {
		ub = ub.Set("token", nil)
	}
	query, args, err := ub.Where(byID("user_id", "client_code", userID, clientCode)).ToSql()
	if err != nil {
		return User{}, fmt.Errorf("to sql: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.ErrNotFound
	}
	return r.Get(ctx, userID, clientCode)
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, userID int64, clientCode string) error {
	query, args, err := psql.Delete("users").Where(byID("user_id", "client_code", userID, clientCode)).ToSql()
	if err != nil {
		return fmt.Errorf("to sql: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns one page of users and the total number of matches.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit, offset int) ([]User, int, error) {
	where := squirrel.And{}
	if filters.ClientCode != "" {
		where = append(where, squirrel.Eq{"u.client_code": filters.ClientCode})
	}
	if filters.RoleID > 0 {
		where = append(where, squirrel.Eq{"u.role_id": filters.RoleID})
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
			squirrel.ILike{"u.email": pattern},
		})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("users u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("to sql: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := selectUsers().Where(where).
		OrderBy("u.created_at DESC", "u.user_id DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("to sql: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// RoleExists reports whether the role belongs to the tenant.
func (r *Repository) RoleExists(ctx context.Context, roleID int64, clientCode string) (bool, error) {
	sb := psql.Select("1").From("roles").Where(squirrel.Eq{"role_id": roleID})
	if clientCode != "" {
		sb = sb.Where(squirrel.Eq{"client_code": clientCode})
	}
	query, args, err := sb.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("to sql: %w", err)
	}
	var ok bool
	err = r.pool.QueryRow(ctx, query, args...).Scan(&ok)
	return ok, err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Mobile, &u.RoleID,
		&u.RoleName, &u.Active, &u.ClientCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return ErrEmailTaken
	case db.IsForeignKeyViolation(err):
		return ErrUnknownRole
	default:
		return err
	}
}

var _ Store = (*Repository)(nil)
