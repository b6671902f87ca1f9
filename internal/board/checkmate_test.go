package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckmate(t *testing.T) {
	// Back rank mate: White Ra8+Ka1 vs Black Kh8 boxed in by its own pawns.
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.Zero(t, pos.GenerateLegalMoves().Len())
	require.False(t, pos.HasLegalMoves())
	require.True(t, pos.IsCheckmate())
	require.False(t, pos.IsStalemate())
}

func TestNotCheckmateKingCanCapture(t *testing.T) {
	// The checking rook is undefended and adjacent to the king, so Kxg8 escapes.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.True(t, pos.InCheck())
	require.NotZero(t, pos.GenerateLegalMoves().Len())
	require.False(t, pos.IsCheckmate())
}

func TestStalemate(t *testing.T) {
	// Classic stalemate: Black king on h8 has no legal move and is not in check.
	pos, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)

	pos.UpdateCheckers()
	require.False(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())
	require.True(t, pos.IsStalemate())
	require.False(t, pos.IsCheckmate())
}
