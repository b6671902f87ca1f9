package engine

import (
	"math"
	"time"

	"github.com/hailam/chessplay/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// TimeManager allocates a soft (optimal) and hard budget for a move and
// scales the soft budget between iterative-deepening iterations.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time

	baseOptimum time.Duration // optimum before per-iteration scaling
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search. moveNumber is the
// current full-move number (1-based).
func (tm *TimeManager) Init(limits UCILimits, us board.Color, moveNumber int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		tm.baseOptimum = tm.optimumTime
		return
	}

	if limits.Infinite || limits.Time[us] == 0 {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		tm.baseOptimum = tm.optimumTime
		return
	}

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]
	hardBudget := timeLeft - 50*time.Millisecond
	if hardBudget < 10*time.Millisecond {
		hardBudget = 10 * time.Millisecond
	}

	var optimum time.Duration
	if limits.MovesToGo > 0 {
		optimum = time.Duration(0.75 * (float64(inc) + 0.95*float64(timeLeft)/float64(limits.MovesToGo)))
	} else {
		mv := float64(moveNumber)
		divider := 41*math.Sqrt(1+1.5*(mv/41)*(mv/41)) - mv
		if divider < 1 {
			divider = 1
		}
		optimum = time.Duration(float64(hardBudget)/divider) + inc
	}

	if optimum > hardBudget {
		optimum = hardBudget
	}
	if optimum < 10*time.Millisecond {
		optimum = 10 * time.Millisecond
	}

	tm.optimumTime = optimum
	tm.baseOptimum = optimum
	tm.maximumTime = hardBudget
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// ShouldEnd is polled inside the search every 1024 nodes against the hard
// budget (or node limit).
func (tm *TimeManager) ShouldEnd(nodes uint64, nodeLimit uint64) bool {
	if nodeLimit > 0 && nodes >= nodeLimit {
		return true
	}
	return tm.Elapsed() >= tm.maximumTime
}

// CanEnd is polled between iterative-deepening iterations against the
// (possibly rescaled) optimal budget.
func (tm *TimeManager) CanEnd() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// Rescale recomputes the optimal budget from the base optimum, scaled by
// best-move stability, the fraction of root nodes spent on the best move,
// and how strongly the correction history disagrees with the static eval.
func (tm *TimeManager) Rescale(stability int, bestMoveNodeFraction float64, evalCorrection int) {
	scale := 1.0

	switch {
	case stability >= 6:
		scale *= 0.40
	case stability >= 4:
		scale *= 0.60
	case stability >= 2:
		scale *= 0.80
	}

	// A dominant best move suggests the search has converged; cut further.
	if bestMoveNodeFraction > 0.8 {
		scale *= 0.85
	}

	// Large disagreement between correction history and static eval means
	// the position is tricky; buy extra time.
	absCorr := evalCorrection
	if absCorr < 0 {
		absCorr = -absCorr
	}
	if absCorr > 80 {
		scale *= 1.25
	}

	tm.optimumTime = time.Duration(float64(tm.baseOptimum) * scale)
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}
