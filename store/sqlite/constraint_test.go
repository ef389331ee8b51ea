package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueConstraintError(t *testing.T) {
	pk := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}
	unique := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	notNull := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}

	assert.True(t, isUniqueConstraintError(pk))
	assert.True(t, isUniqueConstraintError(fmt.Errorf("insert: %w", unique)))
	assert.False(t, isUniqueConstraintError(notNull))
	assert.False(t, isUniqueConstraintError(nil))

	// only the driver's code counts, not the message text
	assert.False(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: filings.id")))
}
