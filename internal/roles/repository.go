package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waari-travel/waari-erp/internal/platform/db"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const roleColumns = "role_id, role_name, is_active, client_code, created_at, updated_at"

// Repository implements Store using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithGrants inserts the role and its grants in one transaction.
func (r *Repository) CreateWithGrants(ctx context.Context, role Role, grants []rbac.Grant) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query, args, err := psql.Insert("roles").
			Columns("role_name", "is_active", "client_code").
			Values(role.Name, role.Active, role.ClientCode).
			Suffix("RETURNING " + roleColumns).ToSql()
		if err != nil {
			return fmt.Errorf("to sql: %w", err)
		}
		created, err := scanRole(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return err
		}
		role = created
		return rbac.NewRepository(tx).ReplaceRoleGrants(ctx, role.ID, grants)
	})
	return role, err
}

// UpdateWithGrants rewrites the role row and replaces its grants in one
// transaction.
func (r *Repository) UpdateWithGrants(ctx context.Context, role Role, grants []rbac.Grant) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query, args, err := psql.Update("roles").
			Set("role_name", role.Name).
			Set("is_active", role.Active).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(byID(role.ID, role.ClientCode)).
			Suffix("RETURNING " + roleColumns).ToSql()
		if err != nil {
			return fmt.Errorf("to sql: %w", err)
		}
		updated, err := scanRole(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return err
		}
		role = updated
		return rbac.NewRepository(tx).ReplaceRoleGrants(ctx, role.ID, grants)
	})
	return role, err
}

// DeleteWithGrants removes the grants and then the role. Roles still held by
// users are refused with ErrRoleInUse.
func (r *Repository) DeleteWithGrants(ctx context.Context, roleID int64, clientCode string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lookup, lookupArgs, err := psql.Select("1").From("roles").Where(byID(roleID, clientCode)).Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return fmt.Errorf("to sql: %w", err)
		}
		var one int
		if err := tx.QueryRow(ctx, lookup, lookupArgs...).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		var inUse bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role_id = $1)`, roleID).Scan(&inUse); err != nil {
			return err
		}
		if inUse {
			return ErrRoleInUse
		}
		if err := rbac.NewRepository(tx).DeleteRoleGrants(ctx, roleID); err != nil {
			return err
		}
		query, args, err := psql.Delete("roles").Where(byID(roleID, clientCode)).ToSql()
		if err != nil {
			return fmt.Errorf("to sql: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrRoleInUse
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Get fetches a role by id within the tenant.
func (r *Repository) Get(ctx context.Context, roleID int64, clientCode string) (Role, error) {
	query, args, err := psql.Select(roleColumns).From("roles").Where(byID(roleID, clientCode)).ToSql()
	if err != nil {
		return Role{}, fmt.Errorf("to sql: %w", err)
	}
	return scanRole(r.pool.QueryRow(ctx, query, args...))
}

// ListGrants returns the role's grant rows.
func (r *Repository) ListGrants(ctx context.Context, roleID int64) ([]rbac.Grant, error) {
	return rbac.NewRepository(r.pool).ListRoleGrants(ctx, roleID)
}

// List returns one page of roles and the total number of matches.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit, offset int) ([]Role, int, error) {
	where := squirrel.And{}
	if filters.ClientCode != "" {
		where = append(where, squirrel.Eq{"client_code": filters.ClientCode})
	}
	if filters.Name != "" {
		where = append(where, squirrel.ILike{"role_name": "%" + filters.Name + "%"})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("roles").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("to sql: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(roleColumns).From("roles").Where(where).
		OrderBy("created_at DESC", "role_id DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("to sql: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Dropdown returns active roles of the tenant ordered by name.
func (r *Repository) Dropdown(ctx context.Context, clientCode string) ([]Option, error) {
	sb := psql.Select("role_id", "role_name").From("roles").Where(squirrel.Eq{"is_active": true})
	if clientCode != "" {
		sb = sb.Where(squirrel.Eq{"client_code": clientCode})
	}
	query, args, err := sb.OrderBy("role_name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Option, error) {
		var o Option
		err := row.Scan(&o.ID, &o.Name)
		return o, err
	})
}

// byID matches one role, limited to clientCode when it is set.
func byID(roleID int64, clientCode string) squirrel.And {
	where := squirrel.And{squirrel.Eq{"role_id": roleID}}
	if clientCode != "" {
		where = append(where, squirrel.Eq{"client_code": clientCode})
	}
	return where
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Active, &role.ClientCode, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

var _ Store = (*Repository)(nil)
