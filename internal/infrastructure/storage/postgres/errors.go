package postgres

import (
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
)

// PostgreSQL error codes the store translates.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// mapError converts a driver error for the row ref into an AppError. A foreign
// key violation means a missing parent on save and a live child on delete.
func mapError(op string, ref entity.Ref, err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if pgxscan.NotFound(err) {
		return apperror.NewNotFound(string(ref.Kind), ref.Key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			if op == "delete" {
				return apperror.NewIntegrity(string(ref.Kind), ref.Key, "row is still referenced").
					WithDetail("constraint", pgErr.ConstraintName).
					WithCause(err)
			}
			return apperror.NewUnknownReference(string(ref.Kind), ref.Key).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgUniqueViolation:
			return apperror.NewDuplicate(string(ref.Kind), pgErr.ConstraintName, ref.Key).
				WithCause(err)
		}
	}
	return apperror.NewDatabase(op+" "+string(ref.Kind), err)
}
