// Package psychcore is the forced-choice psychometric scoring core: a
// balanced quartet-block designer and a Thurstonian IRT estimator with
// normative conversion. It is a library with no HTTP, CLI or database
// surface; the service layer around it is an external collaborator.
package psychcore

import (
	"encoding/json"

	"github.com/perceptivehq/psychcore/internal/calibration"
	"github.com/perceptivehq/psychcore/internal/config"
	"github.com/perceptivehq/psychcore/internal/design"
	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/monitoring"
	"github.com/perceptivehq/psychcore/internal/scoring"
	"github.com/perceptivehq/psychcore/internal/types"
)

// Re-exported data model and collaborator types.
type (
	Statement            = types.Statement
	QuartetBlock         = types.QuartetBlock
	ForcedChoiceResponse = types.ForcedChoiceResponse
	IRTParameters        = types.IRTParameters
	ItemParameters       = types.ItemParameters
	NormativeData        = types.NormativeData
	ThetaEstimate        = types.ThetaEstimate
	NormativeScores      = types.NormativeScores
	BlockSetExport       = types.BlockSetExport
	ScoringResponse      = types.ScoringResponse

	Config           = config.Config
	DesignConfig     = config.DesignConfig
	EstimationConfig = config.EstimationConfig

	BalanceReport      = design.BalanceReport
	StatementPool      = design.StatementPool
	Designer           = design.Designer
	Acceptance         = design.Acceptance
	HillClimbing       = design.HillClimbing
	SimulatedAnnealing = design.SimulatedAnnealing

	CalibrationStore = calibration.Store
	Logger           = monitoring.Logger
)

// DefaultConfig returns the built-in tunables.
func DefaultConfig() *Config { return config.DefaultConfig() }

// LoadConfig reads tunables from a YAML file with defaulting.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewLogger creates the structured JSON logger used across the core.
func NewLogger() *Logger { return monitoring.NewLogger() }

// NewCalibrationStore creates a calibration file store rooted at dataDir.
func NewCalibrationStore(dataDir string, defaultLoading float64) *CalibrationStore {
	return calibration.NewStore(dataDir, defaultLoading)
}

// NewStatementPool groups statements by dimension.
func NewStatementPool(statements []Statement) *StatementPool {
	return design.NewStatementPool(statements)
}

// NewDesigner creates a block designer; a fixed seed reproduces the design
// exactly.
func NewDesigner(cfg *Config, seed int64, logger *Logger) *Designer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return design.NewDesigner(cfg.Design, seed, logger)
}

// NewSimulatedAnnealing creates the annealing acceptance criterion for the
// design optimizer.
func NewSimulatedAnnealing(temperature, cooling float64) *SimulatedAnnealing {
	return design.NewSimulatedAnnealing(temperature, cooling)
}

// Scorer bundles an immutable parameter object with the estimation and
// conversion stages. It holds no mutable state, so one Scorer may serve
// concurrent scoring calls.
type Scorer struct {
	params    *IRTParameters
	estimator *scoring.Estimator
	converter *scoring.Converter
}

// NewScorer validates the calibration parameters and wires the scoring
// pipeline. The parameters are treated as read-only for the process
// lifetime.
func NewScorer(params *IRTParameters, cfg *Config, logger *Logger) (*Scorer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := calibration.Validate(params); err != nil {
		return nil, err
	}

	return &Scorer{
		params:    params,
		estimator: scoring.NewEstimator(params, cfg.Estimation, logger),
		converter: scoring.NewConverter(params),
	}, nil
}

// Params returns the calibration parameters the scorer was built with.
func (s *Scorer) Params() *IRTParameters { return s.params }

// Estimate runs theta estimation alone.
func (s *Scorer) Estimate(responses []ForcedChoiceResponse, blocks []QuartetBlock, usePrior bool) (ThetaEstimate, error) {
	return s.estimator.Estimate(responses, blocks, usePrior)
}

// Convert runs normative conversion alone.
func (s *Scorer) Convert(estimate ThetaEstimate) NormativeScores {
	return s.converter.Convert(estimate)
}

// Score runs the full pipeline: estimation followed by normative
// conversion, combined into the scoring response handed to the reporting
// collaborator.
func (s *Scorer) Score(responses []ForcedChoiceResponse, blocks []QuartetBlock, usePrior bool) (*ScoringResponse, error) {
	estimate, err := s.estimator.Estimate(responses, blocks, usePrior)
	if err != nil {
		return nil, err
	}

	norms := s.converter.Convert(estimate)

	return &ScoringResponse{
		Theta:             estimate.Theta,
		SE:                estimate.SE,
		LogLikelihood:     estimate.LogLikelihood,
		Convergence:       estimate.Convergence,
		NIterations:       estimate.NIterations,
		Percentiles:       norms.Percentiles,
		TScores:           norms.TScores,
		Stanines:          norms.Stanines,
		RejectedResponses: estimate.RejectedResponses,
		SEFallback:        estimate.SEFallback,
	}, nil
}

// ExportBlockSet builds the published block-set document consumed by the
// delivery collaborator.
func ExportBlockSet(version string, blocks []QuartetBlock) BlockSetExport {
	return BlockSetExport{
		Version: version,
		NBlocks: len(blocks),
		Blocks:  blocks,
	}
}

// ParseScoringRequest decodes the ordered response list sent by the
// delivery collaborator.
func ParseScoringRequest(data []byte) ([]ForcedChoiceResponse, error) {
	var responses []ForcedChoiceResponse
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, apperrors.NewInvalidResponseError("", "malformed scoring request: "+err.Error())
	}
	return responses, nil
}
