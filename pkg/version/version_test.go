package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/vuesetup/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	s := version.String()

	assert.True(t, strings.HasPrefix(s, "vuesetup "))
	assert.Contains(t, s, "commit:")
}
