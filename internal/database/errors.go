package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pqCode(err error) (string, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pqCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pqCode(err)
	return code == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	code, _ := pqCode(err)
	return code == pgCheckViolation
}

// getError maps sql.ErrNoRows to a NotFoundError and wraps everything else
func getError(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// expectOneRow turns a zero-row write into a NotFoundError
func expectOneRow(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return models.NewNotFoundError(entity, id)
	}
	return nil
}
