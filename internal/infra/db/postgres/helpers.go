package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/bryanwahyu/rightsdesk/internal/domain"
)

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
