package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMagicBitboardsMatchSlowAttacks(t *testing.T) {
	require.True(t, VerifyMagics(), "magic bitboard lookup disagrees with ray-casting reference for some square/occupancy")
}
