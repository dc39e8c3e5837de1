package database

import (
	"database/sql"
	"fmt"
)

// RequireAffected возвращает notFound, если запрос не затронул ни одной строки
func RequireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
