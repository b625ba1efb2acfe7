package gormpersistence

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// isDuplicateEntryError 判断错误是否为唯一约束冲突。
// MySQL 通过驱动错误码识别，其余驱动退回到错误字符串匹配。
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
