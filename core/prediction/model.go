package prediction

import (
	"encoding/json"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// ErrNoModel is returned when no trained model is available.
var ErrNoModel = errors.New("prediction model not available")

// Model estimates the probability of an absence.
type Model interface {
	PredictProbability(f Features) (float64, error)
}

// LogisticModel is a logistic regression exported as JSON:
//
//	{"feature_names": [...], "coefficients": [...], "intercept": 0.1}
type LogisticModel struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func (m *LogisticModel) validate() error {
	if len(m.Coefficients) != len(FeatureNames) {
		return errors.Errorf("model has %d coefficients, want %d", len(m.Coefficients), len(FeatureNames))
	}
	if m.FeatureNames != nil {
		if len(m.FeatureNames) != len(FeatureNames) {
			return errors.Errorf("model has %d feature names, want %d", len(m.FeatureNames), len(FeatureNames))
		}
		for i, name := range m.FeatureNames {
			if name != FeatureNames[i] {
				return errors.Errorf("feature %d is %q, want %q", i, name, FeatureNames[i])
			}
		}
	}
	return nil
}

func (m *LogisticModel) PredictProbability(f Features) (float64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	z := m.Intercept
	for i, x := range f.Vector() {
		z += m.Coefficients[i] * x
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, errors.New("model produced NaN")
	}
	return p, nil
}

// LoadLogisticModel reads a LogisticModel from a JSON file.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNoModel, path)
		}
		return nil, errors.Wrap(err, "reading model")
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding model")
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ModelCache loads models from dir on first use and keeps them, load failures included.
// It is safe for concurrent use.
type ModelCache struct {
	dir    string
	mu     sync.Mutex
	models map[string]Model
	errs   map[string]error
}

func NewModelCache(dir string) *ModelCache {
	return &ModelCache{dir: dir, models: map[string]Model{}, errs: map[string]error{}}
}

// Get returns the model `name`, loading <dir>/<name>.json on first use.
func (mc *ModelCache) Get(name string) (Model, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if m, ok := mc.models[name]; ok {
		return m, nil
	}
	if err, ok := mc.errs[name]; ok {
		return nil, err
	}
	if mc.dir == "" {
		return nil, ErrNoModel
	}

	m, err := LoadLogisticModel(filepath.Join(mc.dir, name+".json"))
	if err != nil {
		mc.errs[name] = err
		return nil, err
	}
	mc.models[name] = m
	return m, nil
}

// Put registers a model under name, replacing any cached one or load failure.
func (mc *ModelCache) Put(name string, m Model) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.models[name] = m
	delete(mc.errs, name)
}

// Forget drops name so the next Get reloads it.
func (mc *ModelCache) Forget(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.models, name)
	delete(mc.errs, name)
}
