package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerCountDerivesFromGOMAXPROCS(t *testing.T) {
	assert.GreaterOrEqual(t, WorkerCount(0), 1)
}

func TestWorkerCountOverrideWins(t *testing.T) {
	assert.Equal(t, 3, WorkerCount(3))
}
