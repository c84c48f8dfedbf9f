package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/types"
)

// Store manages IRT calibration files by instrument name
type Store struct {
	dataDir string
	// defaultLoading is assigned to uncalibrated statements.
	defaultLoading float64
}

// NewStore creates a new calibration store
func NewStore(dataDir string, defaultLoading float64) *Store {
	return &Store{dataDir: dataDir, defaultLoading: defaultLoading}
}

// Load loads calibration parameters for an instrument. When no file exists
// the built-in defaults are returned so uncalibrated pools stay scorable.
func (s *Store) Load(name string) (*types.IRTParameters, error) {
	filePath := filepath.Join(s.dataDir, fmt.Sprintf("%s.json", name))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return s.defaultParameters(), nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.NewCalibrationError("failed to open calibration file", err)
	}
	defer file.Close()

	var params types.IRTParameters
	if err := json.NewDecoder(file).Decode(&params); err != nil {
		return nil, apperrors.NewCalibrationError("failed to decode calibration file", err)
	}

	if err := Validate(&params); err != nil {
		return nil, err
	}

	return &params, nil
}

// Save writes calibration parameters for an instrument
func (s *Store) Save(name string, params *types.IRTParameters) error {
	if err := Validate(params); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return apperrors.NewCalibrationError("failed to create calibration directory", err)
	}

	filePath := filepath.Join(s.dataDir, fmt.Sprintf("%s.json", name))

	file, err := os.Create(filePath)
	if err != nil {
		return apperrors.NewCalibrationError("failed to create calibration file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(params); err != nil {
		return apperrors.NewCalibrationError("failed to encode calibration file", err)
	}

	return nil
}

// defaultParameters returns uncalibrated defaults: the configured factor
// loading for every statement, no normative data.
func (s *Store) defaultParameters() *types.IRTParameters {
	return &types.IRTParameters{
		ItemParameters:      map[string]types.ItemParameters{},
		BlockParameters:     map[string][]float64{},
		DimensionThresholds: map[string][]float64{},
		CalibrationDate:     time.Now().UTC(),
		ModelVersion:        "uncalibrated",
	}
}

// DefaultLoading returns the loading assigned to statements without
// calibrated item parameters.
func (s *Store) DefaultLoading() float64 {
	return s.defaultLoading
}

// Validate checks the structural invariants of a calibration artifact.
// Normative data is all-or-nothing: means and sds for every dimension or
// no normative block at all.
func Validate(params *types.IRTParameters) error {
	if params == nil {
		return apperrors.NewCalibrationError("calibration parameters are nil", nil)
	}

	nd := params.NormativeData
	if nd == nil {
		return nil
	}

	d := len(params.Dimensions)
	if len(nd.Means) != d || len(nd.SDs) != d {
		return apperrors.NewCalibrationError(
			fmt.Sprintf("partial normative data: %d means, %d sds for %d dimensions",
				len(nd.Means), len(nd.SDs), d), nil)
	}
	for i, sd := range nd.SDs {
		if sd <= 0 {
			return apperrors.NewCalibrationError(
				fmt.Sprintf("normative sd for dimension %q must be positive, got %g",
					params.Dimensions[i], sd), nil)
		}
	}
	return nil
}
