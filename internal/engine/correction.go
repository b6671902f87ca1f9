package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

const correctionTableSize = 65536
const correctionMax = 256
const correctionScale = 16

// CorrectionHistory biases a position's raw static evaluation toward what
// the search actually found, split across three signals: pawn structure,
// non-pawn piece placement, and material balance. Each is indexed separately
// per color so that a misjudged structure for one side never pollutes the
// other's correction. Based on Stockfish's correction history.
type CorrectionHistory struct {
	pawn     [2][correctionTableSize]int16
	nonPawn  [2][correctionTableSize]int16
	material [2][correctionTableSize]int16
}

// NewCorrectionHistory creates a new correction history table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

// nonPawnKey derives a hash of everything except pawn placement by removing
// the pawn contribution from the full Zobrist hash; PawnKey is XORed from
// the same per-(color,Pawn,square) keys that feed into Hash, so this cancels
// pawn placement while leaving pieces, castling, en-passant and side-to-move.
func nonPawnKey(pos *board.Position) uint64 {
	return pos.Hash ^ pos.PawnKey
}

// materialKey hashes the piece counts, independent of placement.
func materialKey(pos *board.Position) uint64 {
	var key uint64
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.Queen; pt++ {
			count := uint64(pos.Pieces[c][pt].PopCount())
			key = key*31 + count
		}
	}
	return key
}

// Get returns the combined correction to add to the raw static evaluation
// for the side to move.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	us := pos.SideToMove
	p := int(ch.pawn[us][pos.PawnKey&(correctionTableSize-1)])
	np := int(ch.nonPawn[us][nonPawnKey(pos)&(correctionTableSize-1)])
	m := int(ch.material[us][materialKey(pos)&(correctionTableSize-1)])
	return (p + np + m) / 3
}

// Update records a correction based on the difference between the search
// score and the static evaluation, via gravity update: new = old +
// (bonus-old)/scale.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	diff := searchScore - staticEval
	bonus := diff * depth / 8
	if bonus > correctionMax {
		bonus = correctionMax
	} else if bonus < -correctionMax {
		bonus = -correctionMax
	}

	us := pos.SideToMove
	update(&ch.pawn[us], pos.PawnKey, bonus)
	update(&ch.nonPawn[us], nonPawnKey(pos), bonus)
	update(&ch.material[us], materialKey(pos), bonus)
}

func update(table *[correctionTableSize]int16, key uint64, bonus int) {
	idx := key & (correctionTableSize - 1)
	old := int(table[idx])
	newVal := old + (bonus-old)/correctionScale
	if newVal > 16000 {
		newVal = 16000
	} else if newVal < -16000 {
		newVal = -16000
	}
	table[idx] = int16(newVal)
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	*ch = CorrectionHistory{}
}

// Age scales down all correction values (called between games).
func (ch *CorrectionHistory) Age() {
	for c := board.White; c <= board.Black; c++ {
		for i := range ch.pawn[c] {
			ch.pawn[c][i] /= 2
		}
		for i := range ch.nonPawn[c] {
			ch.nonPawn[c][i] /= 2
		}
		for i := range ch.material[c] {
			ch.material[c][i] /= 2
		}
	}
}
