package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPieceRoundTrip(t *testing.T) {
	for _, c := range []byte{'P', 'N', 'B', 'R', 'Q', 'K', 'p', 'n', 'b', 'r', 'q', 'k'} {
		piece := PieceFromChar(c)
		require.NotEqual(t, NoPiece, piece, "char %c", c)
		require.Equal(t, string(c), piece.String())
	}
	require.Equal(t, NoPiece, PieceFromChar('x'))
}

func TestNewPieceBounds(t *testing.T) {
	require.Equal(t, WhiteQueen, NewPiece(Queen, White))
	require.Equal(t, BlackKnight, NewPiece(Knight, Black))
	require.Equal(t, NoPiece, NewPiece(NoPieceType, White), "out-of-range piece type")
	require.Equal(t, NoPiece, NewPiece(Pawn, NoColor), "out-of-range color")
}

func TestPieceTypeIsSliding(t *testing.T) {
	sliders := map[PieceType]bool{
		Pawn: false, Knight: false, Bishop: true, Rook: true, Queen: true, King: false,
	}
	for pt, want := range sliders {
		require.Equal(t, want, pt.IsSliding(), "%s", pt)
	}
}

func TestPieceValue(t *testing.T) {
	require.Equal(t, 0, NoPiece.Value()%1, "sanity: Value must not panic on NoPiece")
	require.Equal(t, PieceValue[Queen], WhiteQueen.Value())
	require.Equal(t, PieceValue[Pawn], BlackPawn.Value())
}
