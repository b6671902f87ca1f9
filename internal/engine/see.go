package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

// Material values used only by static exchange evaluation; independent of
// the general evaluation's piece values so that pruning thresholds stay
// stable even if positional piece values are retuned.
var seeValues = [7]int{100, 450, 450, 650, 1250, 30000, 0}

// SEEGreaterOrEqual answers whether the side to move wins at least threshold
// material from the capture (or quiet move, in which case it is always a
// winning/equal "capture" of nothing) in the worst case, via swap-off
// simulation: each side in turn brings its least-valuable remaining attacker
// to the exchange square, with the occupancy snapshot updated after each
// capture so that x-ray attacks through vacated sliders are revealed.
func SEEGreaterOrEqual(pos *board.Position, m board.Move, threshold int) bool {
	from := m.From()
	to := m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return threshold <= 0
	}

	var gain int
	if m.IsEnPassant() {
		gain = seeValues[board.Pawn]
	} else if victim := pos.PieceAt(to); victim != board.NoPiece {
		gain = seeValues[victim.Type()]
	} else {
		return threshold <= 0 // quiet move: no material changes hands
	}
	if m.IsPromotion() {
		gain += seeValues[m.Promotion()] - seeValues[board.Pawn]
	}

	var swap [32]int
	depth := 0
	swap[0] = gain

	occupied := pos.AllOccupied &^ board.SquareBB(from)
	attackerValue := seeValues[attacker.Type()]
	side := attacker.Color().Other()

	for {
		depth++
		if depth >= len(swap) {
			break
		}
		swap[depth] = attackerValue - swap[depth-1]
		if max(-swap[depth-1], swap[depth]) < 0 {
			break
		}

		sq, piece := getLeastValuableAttacker(pos, to, side, occupied)
		if sq == board.NoSquare {
			break
		}
		occupied &^= board.SquareBB(sq)
		attackerValue = seeValues[piece.Type()]
		side = side.Other()
	}

	for depth--; depth > 0; depth-- {
		swap[depth-1] = -max(-swap[depth-1], swap[depth])
	}

	return swap[0] >= threshold
}
