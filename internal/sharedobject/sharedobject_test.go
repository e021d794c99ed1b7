package sharedobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBeforeAttachPanics(t *testing.T) {
	o := New[int]("test.not_attached")
	assert.Panics(t, func() { o.Get() })
	assert.False(t, o.Ready())
}

func TestAttachThenGet(t *testing.T) {
	o := New[string]("test.attached")
	v := "hello"
	o.Attach(&v)

	assert.True(t, o.Ready())
	assert.Equal(t, "hello", *o.Get())
}

func TestDoubleAttachPanics(t *testing.T) {
	o := New[int]("test.double_attach")
	a, b := 1, 2
	o.Attach(&a)
	assert.Panics(t, func() { o.Attach(&b) })
}
