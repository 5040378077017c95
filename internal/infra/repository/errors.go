package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgresのエラーコード
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// 制約違反はErrConflictにまとめる
func mapConstraintError(err error, conflict error) error {
	if isUniqueViolation(err) || isForeignKeyViolation(err) {
		return conflict
	}
	return err
}
