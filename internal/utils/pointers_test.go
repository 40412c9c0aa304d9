package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-platform-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueOr(t *testing.T) {
	require.Equal(t, 7, utils.ValueOr(utils.Ptr(7), 1))
	require.Equal(t, 1, utils.ValueOr[int](nil, 1))
}

func TestCloneDoesNotAlias(t *testing.T) {
	require.Nil(t, utils.Clone[int64](nil))

	orig := utils.Ptr(int64(100))
	c := utils.Clone(orig)
	*c = 5
	require.Equal(t, int64(100), *orig)
}
