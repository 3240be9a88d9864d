package option

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborline/catalog/pkg/db/pagination"
)

// QueryOption mutates a gorm query before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}

func WithOrder(order string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if order == "" {
			return db
		}
		return db.Order(order)
	})
}

func WithPreload(association string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if association == "" {
			return db
		}
		return db.Preload(association)
	})
}

// QuerySortBy describes a caller-supplied sort, restricted to an
// allow-list of columns.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{SortBy: sortBy, OrderBy: orderBy, Allow: allow}
}

// WithSortBy applies the sort when the column is allowed, falling back to
// created_at descending otherwise.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := "created_at"
		if sort.Allow[sort.SortBy] {
			column = sort.SortBy
		}
		direction := "DESC"
		if strings.EqualFold(sort.OrderBy, "asc") {
			direction = "ASC"
		}
		return db.Order(column + " " + direction)
	})
}

// ApplyPagination applies a cursor page to the query. One extra row is
// fetched so the caller can tell whether another page exists. Rows must be
// ordered by id descending for the cursor to hold.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 25
		}
		if token := strings.TrimSpace(page.PageToken); token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil && cursor.ID != "" {
				if id, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
					db = db.Where("id < ?", id)
				}
			}
		}
		return db.Limit(size + 1)
	})
}

// WithRowLock acquires FOR UPDATE on the selected rows. Only meaningful
// inside a transaction. SQLite has no row-level locking, so the clause is
// skipped there; its writes serialize on the database file anyway.
func WithRowLock() QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	})
}
