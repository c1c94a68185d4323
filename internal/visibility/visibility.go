// Package visibility builds the conditions deciding which users a viewer may
// see. Everything here composes GORM expressions; nothing touches a session.
//
// A user is visible when it is not banned, not deleted and not flagged
// invisible. It is visible to a viewer when, in addition, no block exists
// between the two in either direction.
package visibility

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	ErrInvalidContext = errors.New("visibility: viewer context has no user id")
	ErrSchemaMismatch = errors.New("visibility: column does not reference users.id")
)

const (
	// aliases keep correlated subqueries unambiguous when the outer query
	// already selects from users or user_blocks
	userAlias  = "visibility_user"
	blockAlias = "visibility_block"
)

var (
	usersTable  = models.User{}.TableName()
	blocksTable = models.UserBlock{}.TableName()

	schemaCache sync.Map
)

// Visible holds when the users row addressed by table is neither banned,
// deleted nor invisible. table is a table name or alias.
func Visible(table string) clause.Expr {
	return clause.Expr{
		SQL: "? = ? AND ? = ? AND ? = ?",
		Vars: []any{
			clause.Column{Table: table, Name: "is_banned"}, false,
			clause.Column{Table: table, Name: "is_deleted"}, false,
			clause.Column{Table: table, Name: "is_invisible"}, false,
		},
	}
}

// VisibleTo holds when the users row addressed by table is Visible and not
// blocked by, nor blocking, viewerID.
func VisibleTo(viewerID uuid.UUID, table string) (clause.Expr, error) {
	if viewerID == uuid.Nil {
		return clause.Expr{}, ErrInvalidContext
	}
	return and(Visible(table), notBlocked(viewerID, clause.Column{Table: table, Name: "id"})), nil
}

// ColumnVisibleTo holds when the user referenced by column is visible to
// viewerID. It correlates through EXISTS, so each outer row is kept or
// dropped but never repeated.
func ColumnVisibleTo(viewerID uuid.UUID, column clause.Column) (clause.Expr, error) {
	cond, err := VisibleTo(viewerID, userAlias)
	if err != nil {
		return clause.Expr{}, err
	}
	return clause.Expr{
		SQL: "EXISTS (SELECT 1 FROM ? WHERE ? = ? AND " + cond.SQL + ")",
		Vars: append([]any{
			clause.Table{Name: usersTable, Alias: userAlias},
			clause.Column{Table: userAlias, Name: "id"},
			column,
		}, cond.Vars...),
	}, nil
}

// UsersVisible is a scope for queries over users that keeps only the users
// visible to v. A missing viewer fails the query with ErrInvalidContext.
func UsersVisible(v *viewer.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		cond, err := VisibleTo(viewerID(v), usersTable)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		groupConditions(db)
		return db.Where(cond)
	}
}

// UsersVisibleNoViewer is UsersVisible for callers without a viewer, such as
// background jobs and admin tooling. Blocks are not considered.
func UsersVisibleNoViewer() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Visible(usersTable))
	}
}

// UsersColumnVisible is a scope that keeps only rows whose column references a
// user visible to v. The column must be a belongs-to foreign key to users.id
// on the query's model, otherwise the query fails with ErrSchemaMismatch.
func UsersColumnVisible(v *viewer.Context, column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		id := viewerID(v)
		if id == uuid.Nil {
			_ = db.AddError(ErrInvalidContext)
			return db
		}

		col, err := UserColumn(db, statementModel(db), column)
		if err != nil {
			_ = db.AddError(err)
			return db
		}

		cond, err := ColumnVisibleTo(id, col)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		groupConditions(db)
		return db.Where(cond)
	}
}

// UserColumn resolves column on model and checks that it references users.id.
func UserColumn(db *gorm.DB, model any, column string) (clause.Column, error) {
	if model == nil {
		return clause.Column{}, fmt.Errorf("%w: query has no model", ErrSchemaMismatch)
	}

	s, err := schema.Parse(model, &schemaCache, db.NamingStrategy)
	if err != nil {
		return clause.Column{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	field := s.LookUpField(column)
	if field == nil || field.DBName == "" {
		return clause.Column{}, fmt.Errorf("%w: %s has no column %q", ErrSchemaMismatch, s.Table, column)
	}

	for _, rel := range s.Relationships.Relations {
		if rel.Type != schema.BelongsTo || rel.FieldSchema == nil || rel.FieldSchema.Table != usersTable {
			continue
		}
		for _, ref := range rel.References {
			if ref.ForeignKey != nil && ref.PrimaryKey != nil &&
				ref.ForeignKey.DBName == field.DBName && ref.PrimaryKey.DBName == "id" {
				return clause.Column{Table: tableName(db, s), Name: field.DBName}, nil
			}
		}
	}
	return clause.Column{}, fmt.Errorf("%w: %s.%s", ErrSchemaMismatch, s.Table, field.DBName)
}

func notBlocked(viewerID uuid.UUID, user clause.Column) clause.Expr {
	blocker := clause.Column{Table: blockAlias, Name: "blocker_id"}
	blocked := clause.Column{Table: blockAlias, Name: "blocked_id"}
	return clause.Expr{
		SQL: "NOT EXISTS (SELECT 1 FROM ? WHERE (? = ? AND ? = ?) OR (? = ? AND ? = ?))",
		Vars: []any{
			clause.Table{Name: blocksTable, Alias: blockAlias},
			blocker, viewerID, blocked, user,
			blocker, user, blocked, viewerID,
		},
	}
}

func and(exprs ...clause.Expr) clause.Expr {
	parts := make([]string, 0, len(exprs))
	var vars []any
	for _, e := range exprs {
		parts = append(parts, "("+e.SQL+")")
		vars = append(vars, e.Vars...)
	}
	return clause.Expr{SQL: strings.Join(parts, " AND "), Vars: vars}
}

// groupConditions wraps the conditions already on the statement in one
// AND group, so a later predicate applies to every branch of an OR.
func groupConditions(db *gorm.DB) {
	c, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return
	}
	where, ok := c.Expression.(clause.Where)
	if !ok || len(where.Exprs) < 2 {
		return
	}
	where.Exprs = []clause.Expression{clause.And(where.Exprs...)}
	c.Expression = where
	db.Statement.Clauses["WHERE"] = c
}

// tableName prefers the alias or name set with Table over the model's table.
func tableName(db *gorm.DB, s *schema.Schema) string {
	if db.Statement.Table != "" {
		return db.Statement.Table
	}
	return s.Table
}

func viewerID(v *viewer.Context) uuid.UUID {
	if v == nil {
		return uuid.Nil
	}
	return v.UserID
}

func statementModel(db *gorm.DB) any {
	if db.Statement.Model != nil {
		return db.Statement.Model
	}
	return db.Statement.Dest
}
