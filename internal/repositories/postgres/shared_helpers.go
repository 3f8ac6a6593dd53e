package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

// sortColumns whitelists ORDER BY columns per table alias
var sortColumns = map[string]string{
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"id":               "id",
	"week":             "week",
	"lecture_date":     "lecture_date",
	"status":           "status",
	"students_present": "students_present",
	"topic":            "topic",
	"score":            "score",
	"full_name":        "full_name",
	"name":             "name",
	"code":             "code",
	"class_code":       "class_code",
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection.
// table prefixes the sort column when the query joins other tables. The primary key
// breaks ties so LIMIT/OFFSET pages never overlap.
func ApplyPaginationAndSort(query *gorm.DB, table, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	qualify := func(c string) string {
		if table == "" {
			return c
		}
		return table + "." + c
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(qualify(column) + " " + sortOrder)
	if column != "id" {
		query = query.Order(qualify("id") + " " + sortOrder)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// likePattern builds an ILIKE pattern, escaping wildcards in the user input
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}

// applyFacultyScope restricts a query whose table carries faculty_id
func applyFacultyScope(query *gorm.DB, column string, facultyID *uint) *gorm.DB {
	if facultyID != nil {
		query = query.Where(column+" = ?", *facultyID)
	}
	return query
}

// wrapWriteError maps unique violations to repositories.ErrDuplicate
func wrapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if repositories.IsDuplicateError(err) {
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
