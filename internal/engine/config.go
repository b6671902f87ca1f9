package engine

import (
	"github.com/BurntSushi/toml"
)

// Tunables holds the search's internal pruning/reduction/extension
// constants. UCI exposes these as the "internal tuning knobs" alongside
// Hash; they default to the values in DefaultTunables and can be
// overridden wholesale by loading a TOML file via LoadTunables.
type Tunables struct {
	AspirationWindow int `toml:"aspiration_window"`

	RazorDepth  int `toml:"razor_depth"`
	RazorMargin int `toml:"razor_margin"`

	RFPMaxDepth        int `toml:"rfp_max_depth"`
	RFPMargin          int `toml:"rfp_margin"`
	RFPNonPVReduction  int `toml:"rfp_non_pv_reduction"`

	NMPMinDepth     int `toml:"nmp_min_depth"`
	NMPBaseRedu     int `toml:"nmp_base_reduction"`
	NMPDepthDivisor int `toml:"nmp_depth_divisor"`
	NMPEvalDivisor  int `toml:"nmp_eval_divisor"`

	ProbCutMinDepth int `toml:"probcut_min_depth"`
	ProbCutMargin   int `toml:"probcut_margin"`

	LMPBase int `toml:"lmp_base"`

	FutilityBase       int `toml:"futility_base"`
	FutilityMultiplier int `toml:"futility_multiplier"`

	SEEQuietMultiplier   int `toml:"see_quiet_multiplier"`
	SEECaptureMultiplier int `toml:"see_capture_multiplier"`

	SingularMinDepth  int `toml:"singular_min_depth"`
	SingularTTSlack   int `toml:"singular_tt_slack"`
	SingularMarginNum int `toml:"singular_margin_numerator"`
	SingularMarginDen int `toml:"singular_margin_denominator"`
}

// DefaultTunables returns the constants specified as defaults.
func DefaultTunables() Tunables {
	return Tunables{
		AspirationWindow: 20,

		RazorDepth:  3,
		RazorMargin: 500,

		RFPMaxDepth:       9,
		RFPMargin:         154,
		RFPNonPVReduction: 48,

		NMPMinDepth:     3,
		NMPBaseRedu:     3,
		NMPDepthDivisor: 3,
		NMPEvalDivisor:  245,

		ProbCutMinDepth: 5,
		ProbCutMargin:   214,

		LMPBase: 2,

		FutilityBase:       124,
		FutilityMultiplier: 305,

		SEEQuietMultiplier:   97,
		SEECaptureMultiplier: 36,

		SingularMinDepth:  6,
		SingularTTSlack:   3,
		SingularMarginNum: 100,
		SingularMarginDen: 80,
	}
}

// LoadTunables reads a TOML file of tuning knobs, starting from the
// defaults for any field the file omits.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	_, err := toml.DecodeFile(path, &t)
	return t, err
}
