package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

// Material values used by the classical evaluator's tapered score. These
// are independent of SEE's own table in see.go so that positional retuning
// here never shifts pruning thresholds there.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// colorSign returns +1 for White and -1 for Black, the orientation every
// term below is accumulated in before the final side-to-move flip.
func colorSign(c board.Color) int {
	if c == board.Black {
		return -1
	}
	return 1
}

// Passed pawn bonuses by relative rank (index 1 = rank 2, index 6 = about to promote).
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

const (
	passedPawnConnectedBonus    = 20
	passedPawnProtectedBonus    = 15
	passedPawnFreePathBonus     = 30
	passedPawnUnstoppableBonus  = 200 // enemy king cannot catch the runner
)

var kingDistanceBonus = [8]int{0, 0, 10, 20, 30, 40, 50, 60}

// Mobility weights per piece type (Pawn, Knight, Bishop, Rook, Queen, King).
var mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0}
var mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}

// King safety: per-attacker-type weight, scaled by attacker count.
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

const (
	pawnShieldBonus      = 10
	pawnShieldMissing    = -15
	openFileNearKing     = -20
	semiOpenFileNearKing = -10
)

// King tropism: bonus per piece type for proximity to the enemy king.
var tropismWeight = [6]int{0, 3, 2, 2, 5, 0}

const (
	bishopPairMgBonus = 25
	bishopPairEgBonus = 50

	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15

	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
	backwardPawnMgPenalty = -15
	backwardPawnEgPenalty = -10

	knightOutpostMg          = 25
	knightOutpostEg          = 15
	knightOutpostProtectedMg = 15
	knightOutpostProtectedEg = 10
	bishopOutpostMg          = 15
	bishopOutpostEg          = 10

	tempoBonus = 10

	hangingPiecePenalty = -40
	threatByPawnBonus   = 25
	threatByMinorBonus  = 20
	loosePiecePenalty   = -10

	// Rooks on the 7th rank ("pig rooks" when doubled).
	rookOn7thMg          = 30
	rookOn7thEg          = 40
	rookOn7thWithPawnsMg = 15
	rookOn7thWithPawnsEg = 20
	doubleRooksOn7thMg   = 50
	doubleRooksOn7thEg   = 60
	connectedRooksMg     = 10
	connectedRooksEg     = 15
	doubledRooksOnFileMg = 20
	doubledRooksOnFileEg = 25

	spaceSquareBonus     = 2
	spaceBehindPawnBonus = 3
	spaceMinPieces       = 3

	badBishopPenaltyMg = -5
	badBishopPenaltyEg = -10

	trappedBishopPenaltyMg = -80
	trappedBishopPenaltyEg = -50
	trappedRookPenaltyMg   = -50
	trappedRookPenaltyEg   = -25

	knightRimPenaltyMg    = -15
	knightRimPenaltyEg    = -10
	knightCornerPenaltyMg = -30
	knightCornerPenaltyEg = -20
)

// Space zones: central files, ranks 2-5 for White / 4-7 for Black.
var (
	whiteSpaceZone = (board.FileC | board.FileD | board.FileE | board.FileF) &
		(board.Rank2 | board.Rank3 | board.Rank4 | board.Rank5)
	blackSpaceZone = (board.FileC | board.FileD | board.FileE | board.FileF) &
		(board.Rank4 | board.Rank5 | board.Rank6 | board.Rank7)
)

var (
	lightSquares board.Bitboard
	darkSquares  board.Bitboard
)

var (
	rimSquares    = board.FileA | board.FileH | board.Rank1 | board.Rank8
	cornerSquares = board.SquareBB(board.A1) | board.SquareBB(board.H1) |
		board.SquareBB(board.A8) | board.SquareBB(board.H8)
)

func init() {
	for sq := board.A1; sq <= board.H8; sq++ {
		if (sq.File()+sq.Rank())%2 == 1 {
			lightSquares |= board.SquareBB(sq)
		} else {
			darkSquares |= board.SquareBB(sq)
		}
	}
}

// Piece-square tables, White's perspective, written rank 8 first (a8 at
// index 0): White looks squares up via Square.Mirror(), Black uses them as is.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [...][64]int{
	pawnPST, knightPST, bishopPST, rookPST, queenPST, kingMidgamePST,
}

// maxPhase caps the tapering phase counter; 2 knights + 2 bishops + 2 rooks*2
// + 1 queen*4 per side is 12, so the starting material reaches it exactly and
// the cap only matters after promotions.
const maxPhase = 24

// materialAndPST walks every piece once, accumulating material, PST value
// and the game-phase counter. Shared by Evaluate and EvaluateWithPawnTable
// so the two entry points cannot drift out of sync with each other.
func materialAndPST(pos *board.Position) (mgScore, egScore, phase int) {
	for c := board.White; c <= board.Black; c++ {
		sign := colorSign(c)
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()

				mgScore += sign * pieceValues[pt]
				egScore += sign * pieceValues[pt]

				pstSq := sq.Mirror()
				if c == board.Black {
					pstSq = sq
				}
				if pt == board.King {
					mgScore += sign * kingMidgamePST[pstSq]
					egScore += sign * kingEndgamePST[pstSq]
				} else {
					pstValue := psts[pt][pstSq]
					mgScore += sign * pstValue
					egScore += sign * pstValue
				}

				switch pt {
				case board.Knight, board.Bishop:
					phase++
				case board.Rook:
					phase += 2
				case board.Queen:
					phase += 4
				}
			}
		}
	}
	return mgScore, egScore, phase
}

// taperedScore runs the full static evaluation, consulting pawnTable for the
// pawn-structure term if non-nil (EvaluateWithPawnTable's path) or computing
// it fresh otherwise (Evaluate's path).
func taperedScore(pos *board.Position, pawnTable *PawnTable) int {
	mgScore, egScore, phase := materialAndPST(pos)

	type term struct{ mg, eg int }
	terms := [...]term{
		asTerm(evaluatePassedPawns(pos)),
		asTerm(evaluateMobility(pos)),
		{evaluateKingSafety(pos), 0},
		{evaluateKingTropism(pos), 0},
		asTerm(evaluateBishopPair(pos)),
		asTerm(evaluateRooksOnFiles(pos)),
		asTerm(evaluatePieceCoordination(pos)),
		asTerm(pawnStructureTerm(pos, pawnTable)),
		asTerm(evaluateOutposts(pos)),
		asTerm(evaluateThreats(pos)),
		{evaluateSpace(pos), 0},
		asTerm(evaluateTrappedPieces(pos)),
	}
	for _, t := range terms {
		mgScore += t.mg
		egScore += t.eg
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	score := (mgScore*phase + egScore*(maxPhase-phase)) / maxPhase
	score += tempoBonus

	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

func asTerm(a, b int) struct{ mg, eg int } { return struct{ mg, eg int }{a, b} }

func pawnStructureTerm(pos *board.Position, pawnTable *PawnTable) (int, int) {
	if pawnTable == nil {
		return evaluatePawnStructure(pos)
	}
	return evaluatePawnStructureWithCache(pos, pawnTable)
}

// Evaluate returns the static evaluation of the position from the side to
// move's perspective, recomputing pawn structure on every call.
func Evaluate(pos *board.Position) int {
	return taperedScore(pos, nil)
}

// EvaluateWithPawnTable is like Evaluate but consults a pawn-hash cache for
// the pawn-structure term.
func EvaluateWithPawnTable(pos *board.Position, pawnTable *PawnTable) int {
	return taperedScore(pos, pawnTable)
}

// EvaluateMaterial returns just the material balance, from the side to
// move's perspective.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// IsEndgame reports whether both sides are queenless, or total non-pawn
// material is low enough that endgame-specific heuristics should dominate.
func IsEndgame(pos *board.Position) bool {
	whiteQueens := pos.Pieces[board.White][board.Queen].PopCount()
	blackQueens := pos.Pieces[board.Black][board.Queen].PopCount()
	if whiteQueens == 0 && blackQueens == 0 {
		return true
	}

	whitePieces := pos.Pieces[board.White][board.Knight].PopCount() +
		pos.Pieces[board.White][board.Bishop].PopCount() +
		pos.Pieces[board.White][board.Rook].PopCount()
	blackPieces := pos.Pieces[board.Black][board.Knight].PopCount() +
		pos.Pieces[board.Black][board.Bishop].PopCount() +
		pos.Pieces[board.Black][board.Rook].PopCount()

	return whiteQueens+blackQueens <= 1 && whitePieces+blackPieces <= 4
}

// isPassedPawn reports whether sq holds a pawn with no enemy pawn able to
// block or capture it anywhere between its square and promotion.
func isPassedPawn(pos *board.Position, sq board.Square, color board.Color) bool {
	file := sq.File()
	enemyPawns := pos.Pieces[color.Other()][board.Pawn]

	fileMask := board.FileMask[file]
	if file > 0 {
		fileMask |= board.FileMask[file-1]
	}
	if file < 7 {
		fileMask |= board.FileMask[file+1]
	}

	var frontMask board.Bitboard
	if color == board.White {
		frontMask = board.SquareBB(sq).NorthFill() &^ board.SquareBB(sq)
	} else {
		frontMask = board.SquareBB(sq).SouthFill() &^ board.SquareBB(sq)
	}

	blockingZone := fileMask & frontMask
	return (enemyPawns & blockingZone) == 0
}

func evaluatePassedPawns(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		pawns := pos.Pieces[color][board.Pawn]
		friendlyPawns := pawns
		enemy := color.Other()

		friendlyKingSq := pos.KingSquare[color]
		enemyKingSq := pos.KingSquare[enemy]

		for pawns != 0 {
			sq := pawns.PopLSB()
			if !isPassedPawn(pos, sq, color) {
				continue
			}

			relRank := sq.RelativeRank(color)
			file := sq.File()

			bonus := passedPawnBonus[relRank]
			egBonusExtra := 0

			var promoSq board.Square
			if color == board.White {
				promoSq = board.NewSquare(file, 7)
			} else {
				promoSq = board.NewSquare(file, 0)
			}

			friendlyKingDist := friendlyKingSq.Distance(sq)
			egBonusExtra += kingDistanceBonus[7-minInt(friendlyKingDist, 7)]

			enemyKingDistToPromo := enemyKingSq.Distance(promoSq)
			egBonusExtra += kingDistanceBonus[minInt(enemyKingDistToPromo, 7)]

			pawnAttackers := board.PawnAttacks(sq, color.Other()) & friendlyPawns
			if pawnAttackers != 0 {
				bonus += passedPawnProtectedBonus
			}

			var adjacentFiles board.Bitboard
			if file > 0 {
				adjacentFiles |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacentFiles |= board.FileMask[file+1]
			}
			connectedPawns := friendlyPawns & adjacentFiles
			for temp := connectedPawns; temp != 0; {
				connSq := temp.PopLSB()
				if isPassedPawn(pos, connSq, color) {
					bonus += passedPawnConnectedBonus
					break
				}
			}

			var frontSquares board.Bitboard
			if color == board.White {
				frontSquares = board.SquareBB(sq).NorthFill() &^ board.SquareBB(sq)
			} else {
				frontSquares = board.SquareBB(sq).SouthFill() &^ board.SquareBB(sq)
			}
			frontSquares &= board.FileMask[file]
			pathClear := (frontSquares & pos.AllOccupied) == 0
			if pathClear {
				bonus += passedPawnFreePathBonus
			}

			if pathClear && relRank >= 4 {
				squaresToPromo := 7 - relRank
				enemyKingDistToPawn := enemyKingSq.Distance(sq)

				tempo := 0
				if pos.SideToMove == color {
					tempo = 1
				}
				if enemyKingDistToPawn > squaresToPromo+1-tempo {
					egBonusExtra += passedPawnUnstoppableBonus
				}
			}

			mgBonus += sign * bonus
			egBonus += sign * (bonus*3/2 + egBonusExtra)
		}
	}

	return mgBonus, egBonus
}

func evaluateMobility(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)

		enemyPawns := pos.Pieces[color.Other()][board.Pawn]
		var unsafeSquares board.Bitboard
		if color == board.White {
			unsafeSquares = enemyPawns.SouthEast() | enemyPawns.SouthWest()
		} else {
			unsafeSquares = enemyPawns.NorthEast() | enemyPawns.NorthWest()
		}
		blockedSquares := unsafeSquares | pos.Occupied[color]

		pieceAttacks := func(pt board.PieceType, sq board.Square) board.Bitboard {
			switch pt {
			case board.Knight:
				return board.KnightAttacks(sq)
			case board.Bishop:
				return board.BishopAttacks(sq, occupied)
			case board.Rook:
				return board.RookAttacks(sq, occupied)
			default:
				return board.QueenAttacks(sq, occupied)
			}
		}

		for pt := board.Knight; pt <= board.Queen; pt++ {
			pieces := pos.Pieces[color][pt]
			for pieces != 0 {
				sq := pieces.PopLSB()
				safeSquares := pieceAttacks(pt, sq) &^ blockedSquares
				count := safeSquares.PopCount()
				mgBonus += sign * mobilityMgWeight[pt] * count
				egBonus += sign * mobilityEgWeight[pt] * count
			}
		}
	}

	return mgBonus, egBonus
}

func evaluateKingSafety(pos *board.Position) int {
	var score int
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)

		kingSq := pos.KingSquare[color]
		kingFile := kingSq.File()

		kingZone := board.KingAttacks(kingSq) | board.SquareBB(kingSq)
		if color == board.White {
			kingZone |= kingZone.North()
		} else {
			kingZone |= kingZone.South()
		}

		enemy := color.Other()
		attackerCount := 0
		attackWeight := 0

		checkAttackers := func(pt board.PieceType, attacks board.Bitboard) {
			if attacks&kingZone != 0 {
				attackerCount++
				attackWeight += attackerWeight[pt]
			}
		}

		for temp := pos.Pieces[enemy][board.Knight]; temp != 0; {
			sq := temp.PopLSB()
			checkAttackers(board.Knight, board.KnightAttacks(sq))
		}
		for temp := pos.Pieces[enemy][board.Bishop]; temp != 0; {
			sq := temp.PopLSB()
			checkAttackers(board.Bishop, board.BishopAttacks(sq, occupied))
		}
		for temp := pos.Pieces[enemy][board.Rook]; temp != 0; {
			sq := temp.PopLSB()
			checkAttackers(board.Rook, board.RookAttacks(sq, occupied))
		}
		for temp := pos.Pieces[enemy][board.Queen]; temp != 0; {
			sq := temp.PopLSB()
			checkAttackers(board.Queen, board.QueenAttacks(sq, occupied))
		}

		if attackerCount >= 2 {
			attackWeight = attackWeight * attackerCount / 2
		}
		score -= sign * attackWeight

		ownPawns := pos.Pieces[color][board.Pawn]
		enemyFilePawns := pos.Pieces[enemy][board.Pawn]

		for f := kingFile - 1; f <= kingFile+1; f++ {
			if f < 0 || f > 7 {
				continue
			}

			filePawns := ownPawns & board.FileMask[f]
			enemyOnFile := enemyFilePawns & board.FileMask[f]

			var shieldRank int
			if color == board.White {
				shieldRank = 1
			} else {
				shieldRank = 6
			}

			shieldMask := board.FileMask[f] & board.RankMask[shieldRank]
			if ownPawns&shieldMask != 0 {
				score += sign * pawnShieldBonus
			} else if filePawns == 0 {
				score += sign * pawnShieldMissing
			}

			if filePawns == 0 && enemyOnFile == 0 {
				score += sign * openFileNearKing
			} else if filePawns == 0 {
				score += sign * semiOpenFileNearKing
			}
		}
	}

	return score
}

// getLeastValuableAttacker finds the cheapest piece of side attacking
// target given occupied, used by both the dead-code-free SEE in see.go and
// nowhere else in this file any more.
func getLeastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	pawns := pos.Pieces[side][board.Pawn]
	pawnAttacks := board.PawnAttacks(target, side.Other())
	if attackers := pawns & pawnAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Pawn, side)
	}

	knights := pos.Pieces[side][board.Knight]
	if attackers := knights & board.KnightAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Knight, side)
	}

	bishopAttacks := board.BishopAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Bishop] & bishopAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Bishop, side)
	}

	rookAttacks := board.RookAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Rook] & rookAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Rook, side)
	}

	if attackers := pos.Pieces[side][board.Queen] & (bishopAttacks | rookAttacks) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Queen, side)
	}

	if attackers := pos.Pieces[side][board.King] & board.KingAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.King, side)
	}

	return board.NoSquare, board.NoPiece
}

// max and minInt are tiny integer helpers shared across the evaluator and
// SEE (see.go); kept package-local rather than duplicated per file.
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func evaluateBishopPair(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		if pos.Pieces[color][board.Bishop].MoreThanOne() {
			mgBonus += sign * bishopPairMgBonus
			egBonus += sign * bishopPairEgBonus
		}
	}
	return mgBonus, egBonus
}

func evaluateRooksOnFiles(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]

		rooks := pos.Pieces[color][board.Rook]
		for rooks != 0 {
			sq := rooks.PopLSB()
			fileMask := board.FileMask[sq.File()]

			hasOwnPawn := (ownPawns & fileMask) != 0
			hasEnemyPawn := (enemyPawns & fileMask) != 0

			if !hasOwnPawn {
				if !hasEnemyPawn {
					mgBonus += sign * rookOpenFileMg
					egBonus += sign * rookOpenFileEg
				} else {
					mgBonus += sign * rookSemiOpenFileMg
					egBonus += sign * rookSemiOpenFileEg
				}
			}
		}
	}
	return mgBonus, egBonus
}

func evaluatePawnStructure(pos *board.Position) (mgPenalty, egPenalty int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		pawns := pos.Pieces[color][board.Pawn]
		allPawns := pawns

		for pawns != 0 {
			sq := pawns.PopLSB()
			file := sq.File()
			fileMask := board.FileMask[file]

			pawnsOnFile := allPawns & fileMask
			if pawnsOnFile.PopCount() > 1 {
				var forwardPawn board.Square
				if color == board.White {
					forwardPawn = pawnsOnFile.MSB()
				} else {
					forwardPawn = pawnsOnFile.LSB()
				}
				if sq == forwardPawn {
					mgPenalty += sign * doubledPawnMgPenalty
					egPenalty += sign * doubledPawnEgPenalty
				}
			}

			var adjacentFiles board.Bitboard
			if file > 0 {
				adjacentFiles |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacentFiles |= board.FileMask[file+1]
			}
			if (allPawns & adjacentFiles) == 0 {
				mgPenalty += sign * isolatedPawnMgPenalty
				egPenalty += sign * isolatedPawnEgPenalty
				continue
			}

			relRank := sq.RelativeRank(color)
			if relRank > 1 {
				var behindMask board.Bitboard
				if color == board.White {
					for r := 0; r < sq.Rank(); r++ {
						behindMask |= board.RankMask[r]
					}
				} else {
					for r := sq.Rank() + 1; r < 8; r++ {
						behindMask |= board.RankMask[r]
					}
				}

				adjacentPawns := allPawns & adjacentFiles
				if adjacentPawns != 0 && (adjacentPawns&behindMask) == adjacentPawns {
					continue
				}

				var stopSq board.Square
				if color == board.White {
					stopSq = sq + 8
				} else {
					stopSq = sq - 8
				}
				if stopSq.IsValid() {
					enemyPawnAttacks := board.PawnAttacks(stopSq, color)
					enemyPawns := pos.Pieces[color.Other()][board.Pawn]
					if (enemyPawns & enemyPawnAttacks) != 0 {
						mgPenalty += sign * backwardPawnMgPenalty
						egPenalty += sign * backwardPawnEgPenalty
					}
				}
			}
		}
	}
	return mgPenalty, egPenalty
}

func evaluatePawnStructureWithCache(pos *board.Position, pt *PawnTable) (mgScore, egScore int) {
	if pt == nil {
		return evaluatePawnStructure(pos)
	}
	if mg, eg, found := pt.Probe(pos.PawnKey); found {
		return mg, eg
	}
	mg, eg := evaluatePawnStructure(pos)
	pt.Store(pos.PawnKey, mg, eg)
	return mg, eg
}

func evaluateOutposts(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]

		var outpostRanks board.Bitboard
		if color == board.White {
			outpostRanks = board.RankMask[3] | board.RankMask[4] | board.RankMask[5]
		} else {
			outpostRanks = board.RankMask[2] | board.RankMask[3] | board.RankMask[4]
		}

		outpostSafe := func(sq board.Square) bool {
			file := sq.File()
			var adj board.Bitboard
			if file > 0 {
				adj |= board.FileMask[file-1]
			}
			if file < 7 {
				adj |= board.FileMask[file+1]
			}

			var potential board.Bitboard
			if color == board.White {
				for r := 0; r <= sq.Rank(); r++ {
					potential |= board.RankMask[r]
				}
			} else {
				for r := sq.Rank(); r < 8; r++ {
					potential |= board.RankMask[r]
				}
			}
			return (enemyPawns & adj & potential) == 0
		}

		knights := pos.Pieces[color][board.Knight] & outpostRanks
		for knights != 0 {
			sq := knights.PopLSB()
			if outpostSafe(sq) {
				mgBonus += sign * knightOutpostMg
				egBonus += sign * knightOutpostEg
				if board.PawnAttacks(sq, color.Other())&ownPawns != 0 {
					mgBonus += sign * knightOutpostProtectedMg
					egBonus += sign * knightOutpostProtectedEg
				}
			}
		}

		bishops := pos.Pieces[color][board.Bishop] & outpostRanks
		for bishops != 0 {
			sq := bishops.PopLSB()
			if outpostSafe(sq) {
				mgBonus += sign * bishopOutpostMg
				egBonus += sign * bishopOutpostEg
			}
		}
	}
	return mgBonus, egBonus
}

func evaluateThreats(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		enemy := color.Other()

		ourPawnAttacks := computePawnAttacksBB(pos, color)
		ourKnightAttacks := computeKnightAttacksBB(pos, color)
		ourBishopAttacks := computeBishopAttacksBB(pos, color, occupied)
		ourRookAttacks := computeRookAttacksBB(pos, color, occupied)
		ourQueenAttacks := computeQueenAttacksBB(pos, color, occupied)
		ourKingAttacks := board.KingAttacks(pos.KingSquare[color])
		ourAttacks := ourPawnAttacks | ourKnightAttacks | ourBishopAttacks |
			ourRookAttacks | ourQueenAttacks | ourKingAttacks

		enemyPawnAttacks := computePawnAttacksBB(pos, enemy)
		enemyKnightAttacks := computeKnightAttacksBB(pos, enemy)
		enemyBishopAttacks := computeBishopAttacksBB(pos, enemy, occupied)
		enemyRookAttacks := computeRookAttacksBB(pos, enemy, occupied)
		enemyQueenAttacks := computeQueenAttacksBB(pos, enemy, occupied)
		enemyKingAttacks := board.KingAttacks(pos.KingSquare[enemy])
		enemyAttacks := enemyPawnAttacks | enemyKnightAttacks | enemyBishopAttacks |
			enemyRookAttacks | enemyQueenAttacks | enemyKingAttacks

		ourPieces := pos.Occupied[color] &^ board.SquareBB(pos.KingSquare[color])

		hangingPieces := ourPieces & enemyAttacks &^ ourAttacks
		hangingCount := hangingPieces.PopCount()
		mgBonus += sign * hangingCount * hangingPiecePenalty
		egBonus += sign * hangingCount * (hangingPiecePenalty * 3 / 2)

		loosePieces := ourPieces &^ ourAttacks
		looseCount := loosePieces.PopCount()
		mgBonus += sign * looseCount * loosePiecePenalty

		enemyPieces := pos.Occupied[enemy] &^ board.SquareBB(pos.KingSquare[enemy])

		pawnThreats := enemyPieces & ourPawnAttacks &^ pos.Pieces[enemy][board.Pawn]
		threatCount := pawnThreats.PopCount()
		mgBonus += sign * threatCount * threatByPawnBonus
		egBonus += sign * threatCount * threatByPawnBonus

		minorAttacks := ourKnightAttacks | ourBishopAttacks
		majorPieces := pos.Pieces[enemy][board.Rook] | pos.Pieces[enemy][board.Queen]
		minorThreats := majorPieces & minorAttacks
		threatCount = minorThreats.PopCount()
		mgBonus += sign * threatCount * threatByMinorBonus
		egBonus += sign * threatCount * threatByMinorBonus
	}

	return mgBonus, egBonus
}

func computePawnAttacksBB(pos *board.Position, color board.Color) board.Bitboard {
	pawns := pos.Pieces[color][board.Pawn]
	if color == board.White {
		return pawns.NorthEast() | pawns.NorthWest()
	}
	return pawns.SouthEast() | pawns.SouthWest()
}

func computeKnightAttacksBB(pos *board.Position, color board.Color) board.Bitboard {
	var attacks board.Bitboard
	for knights := pos.Pieces[color][board.Knight]; knights != 0; {
		attacks |= board.KnightAttacks(knights.PopLSB())
	}
	return attacks
}

func computeBishopAttacksBB(pos *board.Position, color board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	for bishops := pos.Pieces[color][board.Bishop]; bishops != 0; {
		attacks |= board.BishopAttacks(bishops.PopLSB(), occupied)
	}
	return attacks
}

func computeRookAttacksBB(pos *board.Position, color board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	for rooks := pos.Pieces[color][board.Rook]; rooks != 0; {
		attacks |= board.RookAttacks(rooks.PopLSB(), occupied)
	}
	return attacks
}

func computeQueenAttacksBB(pos *board.Position, color board.Color, occupied board.Bitboard) board.Bitboard {
	var attacks board.Bitboard
	for queens := pos.Pieces[color][board.Queen]; queens != 0; {
		attacks |= board.QueenAttacks(queens.PopLSB(), occupied)
	}
	return attacks
}

func evaluateKingTropism(pos *board.Position) int {
	var score int

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		enemyKingSq := pos.KingSquare[color.Other()]

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for pieces := pos.Pieces[color][pt]; pieces != 0; {
				sq := pieces.PopLSB()
				if dist := sq.Distance(enemyKingSq); dist < 7 {
					score += sign * tropismWeight[pt] * (7 - dist)
				}
			}
		}
	}

	return score
}

func evaluatePieceCoordination(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		enemy := color.Other()
		rooks := pos.Pieces[color][board.Rook]

		var rank7th, enemyPawnRank board.Bitboard
		if color == board.White {
			rank7th, enemyPawnRank = board.Rank7, board.Rank2
		} else {
			rank7th, enemyPawnRank = board.Rank2, board.Rank7
		}

		rooksOn7th := rooks & rank7th
		rooksOn7thCount := rooksOn7th.PopCount()

		if rooksOn7thCount > 0 {
			mgBonus += sign * rookOn7thMg * rooksOn7thCount
			egBonus += sign * rookOn7thEg * rooksOn7thCount

			if pos.Pieces[enemy][board.Pawn]&enemyPawnRank != 0 {
				mgBonus += sign * rookOn7thWithPawnsMg * rooksOn7thCount
				egBonus += sign * rookOn7thWithPawnsEg * rooksOn7thCount
			}
			if rooksOn7thCount >= 2 {
				mgBonus += sign * doubleRooksOn7thMg
				egBonus += sign * doubleRooksOn7thEg
			}
		}

		if rooks.MoreThanOne() {
			tempRooks := rooks
			var rookSquares [2]board.Square
			idx := 0
			for tempRooks != 0 && idx < 2 {
				rookSquares[idx] = tempRooks.PopLSB()
				idx++
			}

			if idx == 2 {
				sq1, sq2 := rookSquares[0], rookSquares[1]
				if board.RookAttacks(sq1, occupied).IsSet(sq2) {
					mgBonus += sign * connectedRooksMg
					egBonus += sign * connectedRooksEg

					if sq1.File() == sq2.File() {
						mgBonus += sign * doubledRooksOnFileMg
						egBonus += sign * doubledRooksOnFileEg
					}
				}
			}
		}
	}

	return mgBonus, egBonus
}

func evaluateSpace(pos *board.Position) int {
	var score int

	whitePieceCount := pos.Pieces[board.White][board.Knight].PopCount() +
		pos.Pieces[board.White][board.Bishop].PopCount() +
		pos.Pieces[board.White][board.Rook].PopCount() +
		pos.Pieces[board.White][board.Queen].PopCount()
	blackPieceCount := pos.Pieces[board.Black][board.Knight].PopCount() +
		pos.Pieces[board.Black][board.Bishop].PopCount() +
		pos.Pieces[board.Black][board.Rook].PopCount() +
		pos.Pieces[board.Black][board.Queen].PopCount()

	if whitePieceCount < spaceMinPieces && blackPieceCount < spaceMinPieces {
		return 0
	}

	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)

		pieceCount := whitePieceCount
		if color == board.Black {
			pieceCount = blackPieceCount
		}
		if pieceCount < spaceMinPieces {
			continue
		}

		enemy := color.Other()
		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[enemy][board.Pawn]

		var spaceZone board.Bitboard
		if color == board.White {
			spaceZone = whiteSpaceZone
		} else {
			spaceZone = blackSpaceZone
		}

		var pawnControl, enemyPawnAttacks, behindPawns board.Bitboard
		if color == board.White {
			pawnControl = ownPawns.NorthEast() | ownPawns.NorthWest()
			enemyPawnAttacks = enemyPawns.SouthEast() | enemyPawns.SouthWest()
			behindPawns = ownPawns.SouthFill()
		} else {
			pawnControl = ownPawns.SouthEast() | ownPawns.SouthWest()
			enemyPawnAttacks = enemyPawns.NorthEast() | enemyPawns.NorthWest()
			behindPawns = ownPawns.NorthFill()
		}

		safeSpace := spaceZone &^ enemyPawnAttacks
		controlledSpace := (pawnControl | behindPawns) & safeSpace
		spaceCount := controlledSpace.PopCount()

		behindChainSpace := controlledSpace & behindPawns
		behindCount := behindChainSpace.PopCount()

		bonus := spaceCount*spaceSquareBonus + behindCount*spaceBehindPawnBonus
		score += sign * bonus
	}

	return score
}

func evaluateTrappedPieces(pos *board.Position) (mgPenalty, egPenalty int) {
	for color := board.White; color <= board.Black; color++ {
		sign := colorSign(color)
		enemy := color.Other()
		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[enemy][board.Pawn]

		bishops := pos.Pieces[color][board.Bishop]
		for temp := bishops; temp != 0; {
			sq := temp.PopLSB()

			var bishopColorSquares board.Bitboard
			if lightSquares.IsSet(sq) {
				bishopColorSquares = lightSquares
			} else {
				bishopColorSquares = darkSquares
			}

			blockingPawns := (ownPawns & bishopColorSquares).PopCount()
			if blockingPawns >= 3 {
				mgPenalty += sign * badBishopPenaltyMg * blockingPawns
				egPenalty += sign * badBishopPenaltyEg * blockingPawns
			}

			trapped := func(p1, p2 board.Square) bool {
				return enemyPawns.IsSet(p1) && enemyPawns.IsSet(p2)
			}
			if color == board.White {
				if sq == board.A6 && trapped(board.B7, board.B5) {
					mgPenalty += sign * trappedBishopPenaltyMg
					egPenalty += sign * trappedBishopPenaltyEg
				}
				if sq == board.H6 && trapped(board.G7, board.G5) {
					mgPenalty += sign * trappedBishopPenaltyMg
					egPenalty += sign * trappedBishopPenaltyEg
				}
			} else {
				if sq == board.A3 && trapped(board.B2, board.B4) {
					mgPenalty += sign * trappedBishopPenaltyMg
					egPenalty += sign * trappedBishopPenaltyEg
				}
				if sq == board.H3 && trapped(board.G2, board.G4) {
					mgPenalty += sign * trappedBishopPenaltyMg
					egPenalty += sign * trappedBishopPenaltyEg
				}
			}
		}

		kingSquare := pos.KingSquare[color]
		rooks := pos.Pieces[color][board.Rook]

		if color == board.White {
			if kingSquare == board.F1 || kingSquare == board.G1 {
				if rooks&(board.SquareBB(board.G1)|board.SquareBB(board.H1)) != 0 &&
					pos.CastlingRights&board.WhiteKingSideCastle == 0 {
					mgPenalty += sign * trappedRookPenaltyMg
					egPenalty += sign * trappedRookPenaltyEg
				}
			}
			if kingSquare == board.B1 || kingSquare == board.C1 || kingSquare == board.D1 {
				if rooks&(board.SquareBB(board.A1)|board.SquareBB(board.B1)) != 0 &&
					pos.CastlingRights&board.WhiteQueenSideCastle == 0 {
					mgPenalty += sign * trappedRookPenaltyMg
					egPenalty += sign * trappedRookPenaltyEg
				}
			}
		} else {
			if kingSquare == board.F8 || kingSquare == board.G8 {
				if rooks&(board.SquareBB(board.G8)|board.SquareBB(board.H8)) != 0 &&
					pos.CastlingRights&board.BlackKingSideCastle == 0 {
					mgPenalty += sign * trappedRookPenaltyMg
					egPenalty += sign * trappedRookPenaltyEg
				}
			}
			if kingSquare == board.B8 || kingSquare == board.C8 || kingSquare == board.D8 {
				if rooks&(board.SquareBB(board.A8)|board.SquareBB(board.B8)) != 0 &&
					pos.CastlingRights&board.BlackQueenSideCastle == 0 {
					mgPenalty += sign * trappedRookPenaltyMg
					egPenalty += sign * trappedRookPenaltyEg
				}
			}
		}

		rimKnights := pos.Pieces[color][board.Knight] & rimSquares
		for temp := rimKnights; temp != 0; {
			sq := temp.PopLSB()
			if cornerSquares.IsSet(sq) {
				mgPenalty += sign * knightCornerPenaltyMg
				egPenalty += sign * knightCornerPenaltyEg
				continue
			}

			mobility := (board.KnightAttacks(sq) &^ pos.Occupied[color]).PopCount()
			if mobility <= 3 {
				mgPenalty += sign * knightRimPenaltyMg
				egPenalty += sign * knightRimPenaltyEg
			}
		}
	}

	return mgPenalty, egPenalty
}
