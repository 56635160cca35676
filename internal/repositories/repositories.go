package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/desertthunder/tunedeck/internal/shared"
)

// table names are interpolated into SQL, so only plain identifiers are accepted
var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NextSequence increments and returns the counter kept in the single-row "<table>_sequence" table.
//
// Sequences break ties between records observed within the same instant.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("%w: table name %q", shared.ErrInvalidArgument, table)
	}

	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sequence for %s is not initialized: %w", table, shared.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
