package repository

import (
	"context"

	"gorm.io/gorm"

	"crms/internal/workflow"
	"crms/pkg/pagination"
)

// Scope restricts a list query to what a user may see.
// Zero values mean unrestricted.
type Scope struct {
	ManagerID    int64 // projects managed by this user
	SupervisorID int64 // sites supervised by this user
}

// Unrestricted reports whether the scope filters nothing
func (s Scope) Unrestricted() bool {
	return s.ManagerID == 0 && s.SupervisorID == 0
}

// transition runs UPDATE ... WHERE id = ? AND status IN (from) and reports
// whether a row moved. A false result means the row is gone or no longer in
// one of the source states.
func transition(ctx context.Context, db *gorm.DB, table string, id int64, from []workflow.Status, fields map[string]interface{}) (bool, error) {
	res := GetDB(ctx, db).Table(table).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	p := pagination.Normalize(page, limit)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}
