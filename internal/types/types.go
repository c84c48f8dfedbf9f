package types

import "time"

// Statement is a single assessable item in the forced-choice instrument.
// Each statement belongs to exactly one latent dimension.
type Statement struct {
	ID                 string  `json:"statement_id"`
	Text               string  `json:"text"`
	Dimension          string  `json:"dimension"`
	FactorLoading      float64 `json:"factor_loading"`
	SocialDesirability float64 `json:"social_desirability"`
}

// QuartetBlock groups four statements drawn from four distinct dimensions.
// Blocks are immutable once published to the delivery collaborator.
type QuartetBlock struct {
	BlockID    string      `json:"block_id"`
	Statements []Statement `json:"statements"`
}

// Dimensions returns the dimension of each statement in slot order.
func (b QuartetBlock) Dimensions() []string {
	dims := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		dims[i] = s.Dimension
	}
	return dims
}

// HasDuplicateDimension reports whether two statements share a dimension.
func (b QuartetBlock) HasDuplicateDimension() bool {
	seen := make(map[string]bool, len(b.Statements))
	for _, s := range b.Statements {
		if seen[s.Dimension] {
			return true
		}
		seen[s.Dimension] = true
	}
	return false
}

// ForcedChoiceResponse is one answered block from the delivery collaborator.
type ForcedChoiceResponse struct {
	BlockID        string `json:"block_id"`
	MostLikeIndex  int    `json:"most_like_index"`
	LeastLikeIndex int    `json:"least_like_index"`
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
}

// ItemParameters holds per-statement calibration values.
type ItemParameters struct {
	FactorLoading      float64 `json:"factor_loading"`
	SocialDesirability float64 `json:"social_desirability"`
}

// NormativeData holds per-dimension calibration statistics. Either both
// slices are present with one entry per dimension, or the whole block is
// absent; partial data is rejected at load time.
type NormativeData struct {
	Means []float64 `json:"means"`
	SDs   []float64 `json:"sds"`
}

// IRTParameters is the calibration artifact loaded once at startup and
// treated as read-only for the process lifetime.
type IRTParameters struct {
	Dimensions            []string                  `json:"dimensions"`
	ItemParameters        map[string]ItemParameters `json:"item_parameters"`
	BlockParameters       map[string][]float64      `json:"block_parameters"`
	DimensionThresholds   map[string][]float64      `json:"dimension_thresholds"`
	NormativeData         *NormativeData            `json:"normative_data,omitempty"`
	CalibrationSampleSize int                       `json:"calibration_sample_size"`
	CalibrationDate       time.Time                 `json:"calibration_date"`
	ModelVersion          string                    `json:"model_version"`
}

// DimensionIndex maps each dimension name to its position in the canonical
// theta ordering.
func (p *IRTParameters) DimensionIndex() map[string]int {
	idx := make(map[string]int, len(p.Dimensions))
	for i, d := range p.Dimensions {
		idx[d] = i
	}
	return idx
}

// ThetaEstimate is the output of one scoring request.
type ThetaEstimate struct {
	Theta             []float64 `json:"theta"`
	SE                []float64 `json:"se"`
	LogLikelihood     float64   `json:"log_likelihood"`
	Convergence       bool      `json:"convergence"`
	NIterations       int       `json:"n_iterations"`
	RejectedResponses int       `json:"rejected_responses"`
	SEFallback        bool      `json:"se_fallback"`
}

// NormativeScores are the norm-referenced scores derived from a ThetaEstimate.
type NormativeScores struct {
	Percentiles []float64 `json:"percentiles"`
	TScores     []float64 `json:"t_scores"`
	Stanines    []int     `json:"stanines"`
	RawTheta    []float64 `json:"raw_theta"`
}

// BlockSetExport is the published block set consumed by the delivery
// collaborator.
type BlockSetExport struct {
	Version string         `json:"version"`
	NBlocks int            `json:"n_blocks"`
	Blocks  []QuartetBlock `json:"blocks"`
}

// ScoringResponse is the combined result handed to the reporting collaborator.
type ScoringResponse struct {
	Theta             []float64 `json:"theta"`
	SE                []float64 `json:"se"`
	LogLikelihood     float64   `json:"log_likelihood"`
	Convergence       bool      `json:"convergence"`
	NIterations       int       `json:"n_iterations"`
	Percentiles       []float64 `json:"percentiles"`
	TScores           []float64 `json:"t_scores"`
	Stanines          []int     `json:"stanines"`
	RejectedResponses int       `json:"rejected_responses"`
	SEFallback        bool      `json:"se_fallback"`
}
