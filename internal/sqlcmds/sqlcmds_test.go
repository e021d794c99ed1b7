package sqlcmds

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestEmbeddedQueriesAreNonEmpty(t *testing.T) {
	assert.NotEmpty(t, findTimerTableQuery)
	assert.NotEmpty(t, findTimerTablesQuery)
	assert.NotEmpty(t, markTimerAsFiredQuery)
	assert.Contains(t, findTimerTableQuery, "timer_relations")
	assert.Contains(t, markTimerAsFiredQuery, "fired_at = now()")
}

func TestQuotedIdentifiersDoNotDoubleQuote(t *testing.T) {
	quoted := pgx.Identifier{"horloge"}.Sanitize()
	assert.Equal(t, `"horloge"`, quoted)
	assert.False(t, strings.Contains(quoted, `""`))
}
