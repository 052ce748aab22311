package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/waari-travel/waari-erp/internal/platform/db"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for credentials, grants
// and the permission catalog.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository over a pool or a transaction.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const accountColumns = `user_id, role_id, client_code, email, COALESCE(token, ''), is_active`

// FindActiveByToken returns the first active user carrying the token.
func (r *Repository) FindActiveByToken(ctx context.Context, token string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE token = $1 AND is_active ORDER BY user_id LIMIT 1`, token)
	return scanAccount(row)
}

// FindActiveByID returns the active user with the given id.
func (r *Repository) FindActiveByID(ctx context.Context, userID int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE user_id = $1 AND is_active`, userID)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.UserID, &a.RoleID, &a.ClientCode, &a.Email, &a.Token, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// ListRoleGrants returns every grant row of the role.
func (r *Repository) ListRoleGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	rows, err := r.db.Query(ctx, `SELECT role_id, cat_id, list_id FROM permissions WHERE role_id = $1 ORDER BY cat_id, list_id`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Grant, error) {
		var g Grant
		err := row.Scan(&g.RoleID, &g.CategoryID, &g.ListID)
		return g, err
	})
}

// ReplaceRoleGrants deletes all grants of the role and inserts grants. Run it
// inside a transaction so readers never observe a half-written set.
func (r *Repository) ReplaceRoleGrants(ctx context.Context, roleID int64, grants []Grant) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("rbac: delete grants: %w", err)
	}
	if len(grants) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, []any{roleID, g.CategoryID, g.ListID})
	}
	if _, err := r.db.CopyFrom(ctx, pgx.Identifier{"permissions"}, []string{"role_id", "cat_id", "list_id"}, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("rbac: insert grants: %w", err)
	}
	return nil
}

// DeleteRoleGrants removes all grants of the role.
func (r *Repository) DeleteRoleGrants(ctx context.Context, roleID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE role_id = $1`, roleID)
	return err
}

// DeleteOrphanGrants removes grants whose role no longer exists and returns
// the number of rows removed.
func (r *Repository) DeleteOrphanGrants(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions p WHERE NOT EXISTS (SELECT 1 FROM roles r WHERE r.role_id = p.role_id)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT cat_id, cat_name FROM categories ORDER BY cat_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

// ListListsByCategory returns the lists of a category ordered by name.
func (r *Repository) ListListsByCategory(ctx context.Context, catID int64) ([]ListItem, error) {
	rows, err := r.db.Query(ctx, `SELECT l.list_id, l.cat_id, c.cat_name, l.list_name FROM lists l JOIN categories c ON c.cat_id = l.cat_id WHERE l.cat_id = $1 ORDER BY l.list_name`, catID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanListItem)
}

// ListAllLists returns every list joined with its category name.
func (r *Repository) ListAllLists(ctx context.Context) ([]ListItem, error) {
	rows, err := r.db.Query(ctx, `SELECT l.list_id, l.cat_id, c.cat_name, l.list_name FROM lists l JOIN categories c ON c.cat_id = l.cat_id ORDER BY c.cat_name, l.list_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanListItem)
}

func scanListItem(row pgx.CollectableRow) (ListItem, error) {
	var l ListItem
	err := row.Scan(&l.ID, &l.CategoryID, &l.CategoryName, &l.Name)
	return l, err
}

var (
	_ CredentialStore = (*Repository)(nil)
	_ GrantStore      = (*Repository)(nil)
)
