package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatsModuleAndMessage(t *testing.T) {
	err := &Error{Module: "mem", Message: "no usable memory"}
	assert.Equal(t, "mem: no usable memory", err.Error())
}
