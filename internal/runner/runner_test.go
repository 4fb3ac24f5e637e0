package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.True(t, strings.HasPrefix(truncate("abcdef", 3), "abc...(truncated)"))
}

func TestExecMissingBinary(t *testing.T) {
	_, _, err := Exec{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	assert.Error(t, err)
	assert.False(t, Available("definitely-not-a-real-binary-xyz"))
}
