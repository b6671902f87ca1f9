package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chessplay/internal/board"
)

// Score constants.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation discovered at each ply.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for i := ply + 1; i < pv.length[ply+1]; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = pv.length[ply+1]
	if pv.length[ply] <= ply {
		pv.length[ply] = ply + 1
	}
}

// Line returns the PV starting at the root.
func (pv *PVTable) Line() []board.Move {
	n := pv.length[0]
	line := make([]board.Move, n)
	copy(line, pv.moves[0][:n])
	return line
}

// nodeType distinguishes root/PV/non-PV/null-move search contexts, used to
// gate stability tracking, PV-table updates and recursive null-move.
type nodeType uint8

const (
	nodeRoot nodeType = iota
	nodePV
	nodeNonPV
	nodeNull
)

// Searcher runs a single synchronous, single-threaded negamax search with
// alpha-beta pruning over one Position. There is no worker pool: the engine
// owns exactly one Searcher and runs it to completion or to its stop
// condition before the host reads its next command.
type Searcher struct {
	pos       *board.Position
	tt        *TranspositionTable
	pawnTable *PawnTable
	corr      *CorrectionHistory
	orderer   *MoveOrderer
	timeMgr   *TimeManager

	nodes     uint64
	nodeLimit uint64
	stopFlag  atomic.Bool

	pv          PVTable
	undoStack   [MaxPly]board.UndoInfo
	hashStack   [MaxPly]uint64
	moveStack   [MaxPly]board.Move
	staticEvals [MaxPly]int
	excluded    [MaxPly]board.Move

	rootHistory []uint64 // game hashes before the root position, for repetition

	rootBestMove     board.Move
	rootBestMoveNode uint64

	tunables Tunables

	OnIteration func(depth, score int, nodes uint64, pv []board.Move)
}

// NewSearcher creates a Searcher sharing the given transposition, pawn and
// correction tables.
func NewSearcher(tt *TranspositionTable, pawnTable *PawnTable, corr *CorrectionHistory) *Searcher {
	return &Searcher{
		tt:        tt,
		pawnTable: pawnTable,
		corr:      corr,
		orderer:   NewMoveOrderer(),
		timeMgr:   NewTimeManager(),
		tunables:  DefaultTunables(),
	}
}

// SetTunables replaces the search's pruning/reduction/extension constants,
// for the UCI-exposed tuning-knob option set.
func (s *Searcher) SetTunables(t Tunables) { s.tunables = t }

// Stop requests the search to return as soon as it next polls.
func (s *Searcher) Stop() { s.stopFlag.Store(true) }

// Nodes returns the number of nodes visited by the most recent search.
func (s *Searcher) Nodes() uint64 { return s.nodes }

// SetRootHistory supplies the hashes of positions played before the root,
// used for threefold-repetition detection.
func (s *Searcher) SetRootHistory(hashes []uint64) { s.rootHistory = hashes }

// SearchResult is the outcome of one completed iterative-deepening search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Search runs iterative deepening from pos up to maxDepth (or until the time
// manager / node limit fires) and returns the best move found.
func (s *Searcher) Search(pos *board.Position, maxDepth int, tm *TimeManager, nodeLimit uint64) SearchResult {
	s.pos = pos
	s.timeMgr = tm
	s.nodeLimit = nodeLimit
	s.nodes = 0
	s.stopFlag.Store(false)
	s.orderer.Clear()
	s.tt.NewSearch()

	var lastResult SearchResult
	score := 0
	stability := 0
	prevBest := board.NoMove

	for depth := 1; depth <= maxDepth && depth < MaxPly; depth++ {
		s.rootBestMoveNode = 0
		var sc int
		if depth >= 8 {
			window := s.tunables.AspirationWindow
			for {
				alpha := score - window
				beta := score + window
				sc = s.negamax(alpha, beta, depth, 0, nodeRoot, false)
				if s.stopFlag.Load() {
					break
				}
				if sc <= alpha || sc >= beta {
					window *= 2
					continue
				}
				break
			}
		} else {
			sc = s.negamax(-Infinity, Infinity, depth, 0, nodeRoot, false)
		}
		score = sc

		if s.stopFlag.Load() && depth > 1 {
			break
		}

		line := s.pv.Line()
		if len(line) > 0 {
			lastResult = SearchResult{Move: line[0], Score: score, PV: line, Depth: depth}
		}
		if s.OnIteration != nil {
			s.OnIteration(depth, score, s.nodes, line)
		}

		if lastResult.Move != board.NoMove {
			if lastResult.Move == prevBest {
				stability++
			} else {
				stability = 0
			}
			prevBest = lastResult.Move
		}

		nodeFraction := 0.0
		if s.nodes > 0 {
			nodeFraction = float64(s.rootBestMoveNode) / float64(s.nodes)
		}
		s.timeMgr.Rescale(stability, nodeFraction, s.corr.Get(pos))

		if s.timeMgr.CanEnd() {
			break
		}
		if nodeLimit > 0 && s.nodes >= nodeLimit {
			break
		}
	}

	return lastResult
}

func (s *Searcher) timeUp() bool {
	if s.nodes&1023 == 0 {
		if s.stopFlag.Load() {
			return true
		}
		if s.timeMgr.ShouldEnd(s.nodes, s.nodeLimit) {
			s.stopFlag.Store(true)
			return true
		}
	}
	return false
}

// isRepetition checks the current position's hash against the game history
// and the in-search path within the halfmove-clock window.
func (s *Searcher) isRepetition(ply int) bool {
	hash := s.pos.Hash
	clock := s.pos.HalfMoveClock
	if clock < 4 {
		return false
	}

	for p := ply - 2; p >= 0 && p >= ply-clock; p -= 2 {
		if s.hashStack[p] == hash {
			return true
		}
	}
	n := len(s.rootHistory)
	for i := n - 2; i >= 0 && i >= n-clock; i -= 2 {
		if s.rootHistory[i] == hash {
			return true
		}
	}
	return false
}

func (s *Searcher) makeMove(m board.Move, ply int) {
	s.hashStack[ply] = s.pos.Hash
	s.moveStack[ply] = m
	s.undoStack[ply] = s.pos.MakeMove(m)
}

// prevMove returns the move played at ply-1, or NoMove at the root.
func (s *Searcher) prevMove(ply int) board.Move {
	if ply == 0 {
		return board.NoMove
	}
	return s.moveStack[ply-1]
}

func (s *Searcher) unmakeMove(m board.Move, ply int) {
	s.pos.UnmakeMove(m, s.undoStack[ply])
}

// negamax implements alpha-beta search at interior nodes, following the
// early-exit, whole-node-pruning and move-loop structure of the classical
// engine this codebase descends from, generalized to the direct-legal move
// generator and single-threaded execution model.
func (s *Searcher) negamax(alpha, beta, depth, ply int, nt nodeType, cutNode bool) int {
	pvNode := nt == nodeRoot || nt == nodePV
	root := nt == nodeRoot

	s.nodes++
	if s.timeUp() {
		return alpha
	}
	if ply >= MaxPly-1 {
		return Evaluate(s.pos)
	}

	if !root {
		alpha = maxInt(alpha, -MateScore+ply)
		beta = minInt(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
		if s.pos.HalfMoveClock >= 100 || s.isRepetition(ply) {
			return 0
		}
	}

	if depth <= 0 {
		return s.quiescence(alpha, beta, ply)
	}

	s.pv.length[ply] = ply

	excludedMove := s.excluded[ply]
	var ttMove board.Move
	var ttHit bool
	var ttEntry TTEntry
	if excludedMove == board.NoMove {
		ttEntry, ttHit = s.tt.Probe(s.pos.Hash)
		if ttHit {
			ttMove = ttEntry.BestMove
			ttScore := AdjustScoreFromTT(int(ttEntry.Score), ply)
			requiredDepth := depth
			if pvNode {
				requiredDepth = depth + 2
			}
			if int(ttEntry.Depth) >= requiredDepth && !pvNode {
				switch ttEntry.Flag {
				case TTExact:
					return ttScore
				case TTLowerBound:
					if ttScore >= beta {
						return ttScore
					}
				case TTUpperBound:
					if ttScore <= alpha {
						return ttScore
					}
				}
			}
		}
	}

	if !ttHit && depth >= 4 {
		depth--
	}

	inCheck := s.pos.InCheck()
	var staticEval int
	if inCheck {
		staticEval = -Infinity
	} else if ttHit {
		staticEval = int(ttEntry.StaticEval)
	} else {
		staticEval = Evaluate(s.pos) + s.corr.Get(s.pos)
	}
	s.staticEvals[ply] = staticEval

	improving := false
	if !inCheck && ply >= 2 {
		improving = staticEval > s.staticEvals[ply-2]
	}

	notMateBound := absInt(beta) < MateScore-MaxPly

	tn := &s.tunables
	if !root && !inCheck && notMateBound && excludedMove == board.NoMove {
		if depth < tn.RazorDepth && staticEval+tn.RazorMargin*depth <= alpha {
			score := s.quiescence(alpha, alpha+1, ply)
			if score <= alpha {
				return score
			}
		}

		if depth < tn.RFPMaxDepth {
			margin := tn.RFPMargin
			if !pvNode {
				margin -= tn.RFPNonPVReduction
			}
			if staticEval-margin*(depth-boolToInt(improving)) >= beta {
				return (staticEval + beta) / 2
			}
		}

		if nt != nodeNull && depth >= tn.NMPMinDepth && staticEval >= beta && s.pos.HasNonPawnMaterial() {
			r := tn.NMPBaseRedu + depth/tn.NMPDepthDivisor + boolToInt(improving) + clampInt((staticEval-beta)/tn.NMPEvalDivisor, 0, 3)
			nullUndo := s.pos.MakeNullMove()
			score := -s.negamax(-beta, -beta+1, depth-1-r, ply+1, nodeNull, !cutNode)
			s.pos.UnmakeNullMove(nullUndo)
			if s.stopFlag.Load() {
				return alpha
			}
			if score >= beta {
				if score > MateScore-MaxPly {
					score = beta
				}
				return score
			}
		}

		if depth >= tn.ProbCutMinDepth {
			probBeta := beta + tn.ProbCutMargin
			if probBeta < beta+1 {
				probBeta = beta + 1
			}
			captures := s.pos.GenerateCaptures()
			for i := 0; i < captures.Len(); i++ {
				m := captures.Get(i)
				if !SEEGreaterOrEqual(s.pos, m, probBeta-staticEval) {
					continue
				}
				s.makeMove(m, ply)
				score := -s.quiescence(-probBeta, -probBeta+1, ply+1)
				if score >= probBeta {
					score = -s.negamax(-probBeta, -probBeta+1, depth-4, ply+1, nodeNonPV, !cutNode)
				}
				s.unmakeMove(m, ply)
				if s.stopFlag.Load() {
					return alpha
				}
				if score >= probBeta {
					return score
				}
			}
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	s.scoreMoves(moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	originalAlpha := alpha
	quietsTried := 0
	var triedQuiets [64]board.Move
	legalCount := 0

	for i := 0; i < moves.Len(); i++ {
		pickMove(moves, i)
		m := moves.Get(i)
		if m == excludedMove {
			continue
		}

		isCapture := m.IsCapture(s.pos)
		isPromo := m.IsPromotion()
		isQuiet := !isCapture && !isPromo

		if !root && bestScore > -MateScore+MaxPly {
			if isQuiet {
				limit := tn.LMPBase + depth*depth/(2-boolToInt(improving))
				if quietsTried > limit {
					continue
				}
			}

			lmrDepth := depth - 1
			if lmrDepth < 0 {
				lmrDepth = 0
			}
			if isQuiet && staticEval+tn.FutilityBase+tn.FutilityMultiplier*lmrDepth <= alpha {
				continue
			}

			seeThreshold := -tn.SEEQuietMultiplier * depth
			if !isQuiet {
				seeThreshold = -tn.SEECaptureMultiplier * depth * depth
			}
			if depth <= 8 && !SEEGreaterOrEqual(s.pos, m, seeThreshold) {
				continue
			}
		}

		extension := 0
		if !root && m == ttMove && depth >= tn.SingularMinDepth && ttHit && int(ttEntry.Depth) >= depth-tn.SingularTTSlack && ttEntry.Flag != TTUpperBound && excludedMove == board.NoMove {
			sBeta := int(ttEntry.Score) - depth*tn.SingularMarginNum/tn.SingularMarginDen
			s.excluded[ply] = m
			score := s.negamax(sBeta-1, sBeta, depth/2, ply, nodeNonPV, cutNode)
			s.excluded[ply] = board.NoMove
			if score < sBeta {
				extension = 1
			} else if sBeta >= beta {
				return sBeta
			} else if cutNode {
				extension = -2
			}
		}

		legalCount++
		if isQuiet && quietsTried < len(triedQuiets) {
			triedQuiets[quietsTried] = m
		}
		if isQuiet {
			quietsTried++
		}

		s.makeMove(m, ply)

		newDepth := depth - 1 + extension
		var score int
		if legalCount == 1 {
			score = -s.negamax(-beta, -alpha, newDepth, ply+1, childNodeType(nt, true), false)
		} else {
			reduction := 0
			if depth >= 3 && quietsTried > 1 && isQuiet {
				reduction = lmrReduction(depth, legalCount)
				reduction += boolToInt(!improving)
				reduction += boolToInt(cutNode)
				hist := s.orderer.GetHistoryScore(m)
				if hist > 0 {
					reduction -= clampInt(hist/4000, 0, 2)
				} else {
					reduction += clampInt(-hist/4000, 0, 2)
				}
				reduction = clampInt(reduction, 0, newDepth-1)
			}

			score = -s.negamax(-alpha-1, -alpha, newDepth-reduction, ply+1, nodeNonPV, true)
			if score > alpha && reduction > 0 {
				score = -s.negamax(-alpha-1, -alpha, newDepth, ply+1, nodeNonPV, !cutNode)
			}
			if score > alpha && score < beta && pvNode {
				score = -s.negamax(-beta, -alpha, newDepth, ply+1, nodePV, false)
			}
		}

		s.unmakeMove(m, ply)

		if s.stopFlag.Load() {
			return alpha
		}

		if root && m == s.rootBestMove {
			s.rootBestMoveNode += s.nodes
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if pvNode {
				s.pv.update(ply, m)
			}
			if root {
				s.rootBestMove = m
			}
			if score > alpha {
				alpha = score
				if score >= beta {
					if isQuiet {
						s.orderer.UpdateKillers(m, ply)
						s.orderer.UpdateHistory(m, depth, true)
						prev := s.prevMove(ply)
						if prev != board.NoMove {
							s.orderer.UpdateCounterMove(prev, m, s.pos)
							prevPiece := s.pos.PieceAt(prev.To())
							movePiece := s.pos.PieceAt(m.From())
							s.orderer.UpdateCountermoveHistory(prev, m, prevPiece, movePiece, depth, true)
						}
						for j := 0; j < quietsTried-1; j++ {
							if triedQuiets[j] != m {
								s.orderer.UpdateHistory(triedQuiets[j], depth, false)
							}
						}
					} else {
						attackerPiece := s.pos.PieceAt(m.From())
						s.orderer.UpdateCaptureHistory(attackerPiece, m.To(), capturedType(s.pos, m), depth, true)
					}
					break
				}
			}
		}
	}

	if legalCount == 0 {
		if excludedMove != board.NoMove {
			return alpha // all legal moves were the singular-excluded move
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if excludedMove == board.NoMove {
		flag := TTExact
		if bestScore >= beta {
			flag = TTLowerBound
		} else if bestScore <= originalAlpha {
			flag = TTUpperBound
		}
		s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), staticEval, flag, pvNode, bestMove)

		if !inCheck && bestMove != board.NoMove && !bestMove.IsCapture(s.pos) && !bestMove.IsPromotion() {
			s.corr.Update(s.pos, bestScore, staticEval, depth)
		}
	}

	return bestScore
}

// quiescence extends the search along capture sequences (and all evasions
// while in check) until the position is quiet, bounding the horizon effect.
func (s *Searcher) quiescence(alpha, beta, ply int) int {
	s.nodes++
	if s.timeUp() {
		return alpha
	}
	if ply >= MaxPly-1 {
		return Evaluate(s.pos)
	}

	inCheck := s.pos.InCheck()

	entry, hit := s.tt.Probe(s.pos.Hash)
	if hit {
		score := AdjustScoreFromTT(int(entry.Score), ply)
		switch entry.Flag {
		case TTExact:
			return score
		case TTLowerBound:
			if score >= beta {
				return score
			}
		case TTUpperBound:
			if score <= alpha {
				return score
			}
		}
	}

	var staticEval int
	if inCheck {
		staticEval = -Infinity
	} else if hit {
		staticEval = int(entry.StaticEval)
	} else {
		staticEval = Evaluate(s.pos) + s.corr.Get(s.pos)
	}

	bestScore := staticEval
	if !inCheck {
		if staticEval >= beta {
			return staticEval
		}
		if staticEval > alpha {
			alpha = staticEval
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = s.pos.GenerateLegalMoves()
	} else {
		moves = s.pos.GenerateCaptures()
	}
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return staticEval
	}

	s.scoreMoves(moves, ply, board.NoMove)

	bestMove := board.NoMove
	legalCount := 0
	for i := 0; i < moves.Len(); i++ {
		pickMove(moves, i)
		m := moves.Get(i)

		if !inCheck {
			if !SEEGreaterOrEqual(s.pos, m, 0) {
				continue
			}
			if staticEval+200+seeValues[capturedType(s.pos, m)] <= alpha {
				continue
			}
		}

		legalCount++
		s.makeMove(m, ply)
		score := -s.quiescence(-beta, -alpha, ply+1)
		s.unmakeMove(m, ply)

		if s.stopFlag.Load() {
			return alpha
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && legalCount == 0 {
		return -MateScore + ply
	}

	flag := TTUpperBound
	if bestScore >= beta {
		flag = TTLowerBound
	}
	s.tt.Store(s.pos.Hash, 0, AdjustScoreToTT(bestScore, ply), staticEval, flag, false, bestMove)

	return bestScore
}

func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	if cp := pos.PieceAt(m.To()); cp != board.NoPiece {
		return cp.Type()
	}
	return board.Pawn
}

// scoreMoves assigns each move's ordering score into the move list's own
// parallel score slot, adding a counter-move and countermove-history bonus
// for quiet moves on top of the base TT/capture/killer/history score.
func (s *Searcher) scoreMoves(moves *board.MoveList, ply int, ttMove board.Move) {
	prev := s.prevMove(ply)
	counterMove := s.orderer.GetCounterMove(prev, s.pos)
	var prevPiece board.Piece
	if prev != board.NoMove {
		prevPiece = s.pos.PieceAt(prev.To())
	}

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		score := s.orderer.scoreMove(s.pos, m, ply, ttMove)

		if m != ttMove && !m.IsCapture(s.pos) && !m.IsPromotion() {
			if m == counterMove && score < KillerScore2 {
				score = KillerScore2 - 10000
			}
			movePiece := s.pos.PieceAt(m.From())
			score += s.orderer.GetCountermoveHistoryScore(prev, prevPiece, movePiece, m.To()) / 2
		}

		moves.SetScore(i, int32(score))
	}
}

// pickMove selects the best-scoring remaining move and swaps it to index,
// using MoveList's own score slots directly rather than a side array.
func pickMove(moves *board.MoveList, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if moves.Score(j) > moves.Score(best) {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
	}
}

func childNodeType(parent nodeType, first bool) nodeType {
	if parent == nodeRoot {
		if first {
			return nodePV
		}
		return nodeNonPV
	}
	if parent == nodePV && first {
		return nodePV
	}
	return nodeNonPV
}

// lmrReduction approximates 1 + log2(depth)*log2(index)*100/420.
func lmrReduction(depth, moveIndex int) int {
	if depth < 1 || moveIndex < 1 {
		return 0
	}
	r := 1.0 + math.Log2(float64(depth))*math.Log2(float64(moveIndex))*100.0/420.0
	if r < 0 {
		return 0
	}
	return int(r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
