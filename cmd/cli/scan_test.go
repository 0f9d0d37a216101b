package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderScanTable(t *testing.T) {
	t.Run("complete arm", func(t *testing.T) {
		out := renderScanTable([]int{1, 2, 3, 4, 5, 6, 7})
		assert.Contains(t, out, "complete arm")
		assert.NotContains(t, out, "missing")
	})

	t.Run("missing gripper", func(t *testing.T) {
		out := renderScanTable([]int{1, 2, 3, 4, 5, 6})
		assert.Contains(t, out, "gripper")
		assert.Contains(t, out, "1 of 7 servos missing")
	})
}
