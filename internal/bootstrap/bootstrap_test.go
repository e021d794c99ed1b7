package bootstrap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallSQLFormatsWithSchemaAndChannel(t *testing.T) {
	out := fmt.Sprintf(installSQL, `"horloge"`, "horloge_events")

	assert.Contains(t, out, `"horloge".timer_relations`)
	assert.Contains(t, out, "pg_notify(\n        'horloge_events'")
	assert.NotContains(t, out, "%!")
}

func TestInstallSQLDefinesAllSixTriggerFunctions(t *testing.T) {
	out := fmt.Sprintf(installSQL, `"horloge"`, "horloge_events")

	for _, fn := range []string{
		"horloge_timers_before_insert",
		"horloge_timers_after_insert",
		"horloge_timers_before_update",
		"horloge_timers_after_update",
		"horloge_timers_before_delete",
		"horloge_timers_after_delete",
	} {
		assert.True(t, strings.Contains(out, fn), "missing trigger function %s", fn)
	}
}
