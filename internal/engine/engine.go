package engine

import (
	"time"

	"github.com/hailam/chessplay/internal/board"
)

// SearchInfo is emitted once per completed iterative-deepening iteration.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille of hash table used
}

// SearchLimits specifies constraints on a search.
type SearchLimits struct {
	Depth    int           // maximum depth (0 = no limit)
	Nodes    uint64        // maximum nodes (0 = no limit)
	MoveTime time.Duration // time for this move (0 = no limit)
	Infinite bool          // search until stopped
}

// Difficulty represents a preset strength level, mapped to search limits.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 1 * time.Second},
	Hard:   {Depth: 40, MoveTime: 3 * time.Second},
}

// Engine is the single-threaded entry point used by the UCI front end. It
// owns exactly one Searcher, one transposition table, one pawn hash table
// and one correction-history table; there is no worker pool, matching the
// core's single-threaded concurrency model.
type Engine struct {
	tt        *TranspositionTable
	pawnTable *PawnTable
	corr      *CorrectionHistory
	searcher  *Searcher

	timeMgr    *TimeManager
	difficulty Difficulty

	rootHistory []uint64

	OnInfo func(SearchInfo)
}

// NewEngine creates an Engine with a transposition table of the given size
// in megabytes.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	pawnTable := NewPawnTable(4)
	corr := NewCorrectionHistory()

	e := &Engine{
		tt:         tt,
		pawnTable:  pawnTable,
		corr:       corr,
		searcher:   NewSearcher(tt, pawnTable, corr),
		timeMgr:    NewTimeManager(),
		difficulty: Medium,
	}
	return e
}

// SetDifficulty selects a preset search-limit profile.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// LoadConfig loads pruning/reduction/extension tuning knobs from a TOML
// file, replacing the searcher's defaults.
func (e *Engine) LoadConfig(path string) error {
	t, err := LoadTunables(path)
	if err != nil {
		return err
	}
	e.searcher.SetTunables(t)
	return nil
}

// SetPositionHistory supplies the hashes of positions played so far in the
// game (not including the position about to be searched), used for
// threefold-repetition detection.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootHistory = hashes
	e.searcher.SetRootHistory(hashes)
}

// Search runs a search using the current difficulty's preset limits and
// returns the best move.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// SearchWithLimits runs a search under explicit limits and returns the best
// move found.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	tm := NewTimeManager()
	uciLimits := UCILimits{MoveTime: limits.MoveTime, Infinite: limits.Infinite}
	tm.Init(uciLimits, pos.SideToMove, pos.FullMoveNumber)

	e.searcher.OnIteration = func(depth, score int, nodes uint64, pv []board.Move) {
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    score,
				Nodes:    nodes,
				Time:     tm.Elapsed(),
				PV:       pv,
				HashFull: e.tt.HashFull(),
			})
		}
	}

	result := e.searcher.Search(pos, maxDepth, tm, limits.Nodes)
	return result.Move
}

// SearchWithUCILimits runs a search driven directly by UCI `go` parameters,
// using the full time-management pipeline (stability/node-fraction/eval
// correction rescaling between iterations).
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits) board.Move {
	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, pos.FullMoveNumber)

	e.searcher.OnIteration = func(depth, score int, nodes uint64, pv []board.Move) {
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    score,
				Nodes:    nodes,
				Time:     tm.Elapsed(),
				PV:       pv,
				HashFull: e.tt.HashFull(),
			})
		}
	}

	result := e.searcher.Search(pos, maxDepth, tm, limits.Nodes)
	return result.Move
}

// Stop requests the in-progress search to return as soon as possible.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear resets the transposition table, pawn hash table and correction
// history, for the UCI `ucinewgame` command.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.pawnTable.Clear()
	e.corr.Clear()
}

// Nodes returns the node count from the most recent search.
func (e *Engine) Nodes() uint64 {
	return e.searcher.Nodes()
}

// PawnTableSize returns the number of slots in the pawn-structure cache,
// for the UCI "d" debug command.
func (e *Engine) PawnTableSize() int {
	return e.pawnTable.Size()
}

// Perft counts the leaf nodes of the legal move tree to the given depth,
// used to validate move generation against known positions.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return Perft(pos, depth)
}

// Perft is the free-standing recursive perft count, split out of the Engine
// so tests can call it without constructing a full engine.
func Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// Evaluate returns the static evaluation of a position from the side to
// move's perspective.
func (e *Engine) Evaluate(pos *board.Position) int {
	return EvaluateWithPawnTable(pos, e.pawnTable) + e.corr.Get(pos)
}

// ScoreToString formats a centipawn or mate score for UCI `info` output.
func ScoreToString(score int) string {
	if score > MateScore-MaxPly {
		pliesToMate := MateScore - score
		return "mate " + itoa((pliesToMate+1)/2)
	}
	if score < -MateScore+MaxPly {
		pliesToMate := MateScore + score
		return "mate " + itoa(-(pliesToMate+1)/2)
	}
	return "cp " + itoa(score)
}

// itoa avoids pulling in fmt for a single integer formatting need on a hot
// UCI output path.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
