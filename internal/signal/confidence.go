package signal

// ConfidenceWeights tunes how predicate margins map to a confidence
// score. The mapping is deterministic and monotonic in each margin:
// a larger margin never lowers the score.
type ConfidenceWeights struct {
	Base     float64 `mapstructure:"base"`
	Slope    float64 `mapstructure:"slope"`
	Envelope float64 `mapstructure:"envelope"`

	// SlopeScale normalizes the raw slope excess (a per-bar relative
	// change, typically well under 1%) before squashing.
	SlopeScale float64 `mapstructure:"slope_scale"`
}

// DefaultConfidenceWeights returns the stock weighting
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Base:       0.5,
		Slope:      0.3,
		Envelope:   0.2,
		SlopeScale: 0.01,
	}
}

// Confidence reduces a passed Result to a score in [0,1]:
//
//	base + slopeWeight*squash(slopeMargin/slopeScale) + envelopeWeight*squash(envelopeMargin)
//
// where squash(x) = x/(1+x) maps [0,inf) onto [0,1). Margins come from
// the same predicate evaluations that admitted the signal.
func (e *Evaluator) Confidence(res Result) float64 {
	var slopeMargin, envMargin float64
	for _, c := range res.Checks {
		switch c.Name {
		case CheckEMASlope:
			slopeMargin = c.Margin
		case CheckATRPositioning:
			envMargin = c.Margin
		}
	}

	scale := e.weights.SlopeScale
	if scale <= 0 {
		scale = 1
	}

	conf := e.weights.Base +
		e.weights.Slope*squash(slopeMargin/scale) +
		e.weights.Envelope*squash(envMargin)

	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func squash(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x / (1 + x)
}
