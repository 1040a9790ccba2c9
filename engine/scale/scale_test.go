package scale

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, Clamp(3, 0, 1))
	require.Equal(t, 0.0, Clamp(-3, 1, 0))
	require.Equal(t, 0.25, Clamp(0.25, 0, 1))
}

func TestToUnitClamp(t *testing.T) {
	t.Parallel()

	toUnit := ToUnitClamp(96, 192)
	require.Equal(t, 0.0, toUnit(0))
	require.Equal(t, 0.5, toUnit(144))
	require.Equal(t, 1.0, toUnit(400))

	require.Equal(t, 0.0, ToUnitClamp(5, 5)(5))
}
