package analytics

import "math"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Priority orders levels high first, for sorting.
func (l RiskLevel) Priority() int {
	switch l {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	}
	return 2
}

// Confidence tells which strategy produced an assessment.
type Confidence string

const (
	ModelBased        Confidence = "model_based"
	HistoricalPattern Confidence = "historical_pattern"
)

// Thresholds maps a probability to a RiskLevel: >= High is high, >= Medium is medium.
type Thresholds struct {
	High   float64
	Medium float64
}

var (
	ModelThresholds      = Thresholds{High: 0.7, Medium: 0.4}
	HistoricalThresholds = Thresholds{High: 0.6, Medium: 0.3}
)

func (t Thresholds) Classify(p float64) RiskLevel {
	switch {
	case p >= t.High:
		return RiskHigh
	case p >= t.Medium:
		return RiskMedium
	}
	return RiskLow
}

type Recommendation struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	Urgency string `json:"urgency"`
}

var recommendations = map[RiskLevel]Recommendation{
	RiskHigh: {
		Action:  "contact_parent",
		Message: "High absence risk detected. Consider contacting parent/guardian.",
		Urgency: "high",
	},
	RiskMedium: {
		Action:  "monitor_closely",
		Message: "Moderate absence risk. Monitor student closely and be prepared to intervene.",
		Urgency: "medium",
	},
	RiskLow: {
		Action:  "normal_monitoring",
		Message: "Low absence risk. Continue normal attendance monitoring.",
		Urgency: "low",
	},
}

// RecommendationFor is a total function over the three levels.
func RecommendationFor(level RiskLevel) Recommendation {
	if r, ok := recommendations[level]; ok {
		return r
	}
	return recommendations[RiskLow]
}

type Assessment struct {
	Probability    float64        `json:"absence_probability"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Confidence     Confidence     `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
}

// Signal is the input of a Classifier. Model classifiers read Probability,
// historical classifiers read AbsenceRate and ConsecutiveAbsences.
type Signal struct {
	Probability         float64
	AbsenceRate         float64 // fraction in [0, 1]
	ConsecutiveAbsences int
}

// Classifier turns a Signal into an Assessment.
type Classifier interface {
	Assess(sig Signal) Assessment
}

// ModelClassifier classifies a model-estimated probability.
type ModelClassifier struct{}

func (ModelClassifier) Assess(sig Signal) Assessment {
	p := clamp01(sig.Probability)
	level := ModelThresholds.Classify(p)
	return Assessment{
		Probability:    p,
		RiskLevel:      level,
		Confidence:     ModelBased,
		Recommendation: RecommendationFor(level),
	}
}

// streakWeight is added to the absence rate per absence of the current streak.
const streakWeight = 0.2

// HistoricalClassifier is used when no model is available.
type HistoricalClassifier struct{}

func (HistoricalClassifier) Assess(sig Signal) Assessment {
	p := AdjustedProbability(sig.AbsenceRate, sig.ConsecutiveAbsences)
	level := HistoricalThresholds.Classify(p)
	return Assessment{
		Probability:    p,
		RiskLevel:      level,
		Confidence:     HistoricalPattern,
		Recommendation: RecommendationFor(level),
	}
}

// AdjustedProbability is min(1, rate + consecutive*0.2).
func AdjustedProbability(absenceRate float64, consecutive int) float64 {
	return clamp01(absenceRate + float64(consecutive)*streakWeight)
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}

var (
	_ Classifier = ModelClassifier{}
	_ Classifier = HistoricalClassifier{}
)
