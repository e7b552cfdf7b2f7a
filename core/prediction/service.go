// Package prediction assesses the absence risk of students, with a trained model
// when one is available and from their recent history otherwise.
package prediction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
)

const (
	defaultGrade    = 10
	featureDays     = 30
	recentDays      = 7
	fallbackDays    = 14
	emptyHistoryP   = 0.1
	probPrecision   = 4
	DefaultDaysBack = 30
)

// class attendance-rate tiers
const (
	lowRiskRate    = 0.9
	mediumRiskRate = 0.7
)

type Deps struct {
	Attendance *attendance.Service
	Students   *student.Service
	Classes    *class.Service
	Models     *ModelCache
	ModelName  string
	Cache      Cache // optional
	Logger     core.Logger
}

type Service struct {
	attSvc    *attendance.Service
	stdSvc    *student.Service
	clsSvc    *class.Service
	models    *ModelCache
	modelName string
	cache     Cache
	logger    core.Logger
	nowFunc   func() time.Time
}

func NewService(deps Deps) *Service {
	models := deps.Models
	if models == nil {
		models = NewModelCache("")
	}
	return &Service{
		attSvc:    deps.Attendance,
		stdSvc:    deps.Students,
		clsSvc:    deps.Classes,
		models:    models,
		modelName: deps.ModelName,
		cache:     deps.Cache,
		logger:    deps.Logger,
		nowFunc:   time.Now,
	}
}

func (svc *Service) today() core.Date { return core.DateOf(svc.nowFunc()) }

// Predict assesses the absence risk of a student on date (tomorrow when zero).
func (svc *Service) Predict(ctx context.Context, studentID string, date core.Date) (Prediction, error) {
	if date.IsZero() {
		date = svc.today().AddDays(1)
	}
	std, err := svc.stdSvc.Get(ctx, studentID)
	if err != nil {
		return Prediction{}, err
	}

	key := CacheKey(studentID, date)
	if svc.cache != nil {
		p, ok, err := svc.cache.Get(ctx, key)
		if err != nil {
			svc.logger.Warn("prediction cache get failed", err)
		} else if ok {
			return p, nil
		}
	}

	p, err := svc.predict(ctx, std, date)
	if err != nil {
		return Prediction{}, err
	}

	if svc.cache != nil {
		if err := svc.cache.Set(ctx, key, p); err != nil {
			svc.logger.Warn("prediction cache set failed", err)
		}
	}
	return p, nil
}

func (svc *Service) predict(ctx context.Context, std student.Student, date core.Date) (Prediction, error) {
	pred := Prediction{StudentID: std.ID, StudentName: std.FullName(), PredictionDate: date}

	model, err := svc.models.Get(svc.modelName)
	if err == nil {
		var feats Features
		if feats, err = svc.features(ctx, std, date); err != nil {
			return Prediction{}, err
		}
		var p float64
		if p, err = model.PredictProbability(feats); err == nil {
			pred.Assessment = analytics.ModelClassifier{}.Assess(analytics.Signal{Probability: p})
			pred.Probability = core.Round(pred.Probability, probPrecision)
			pred.FeaturesUsed = len(FeatureNames)
			pred.Features = &feats
			return pred, nil
		}
	}
	if errors.Cause(err) != ErrNoModel {
		svc.logger.Warn("model prediction failed, using historical pattern", err)
	}

	history, err := svc.window(ctx, std.ID, date.AddDays(-1-fallbackDays), date.AddDays(-1))
	if err != nil {
		return Prediction{}, err
	}
	n := history.Len()
	pred.HistoricalRecords = &n
	if n == 0 {
		pred.Assessment = analytics.Assessment{
			Probability:    emptyHistoryP,
			RiskLevel:      analytics.RiskLow,
			Confidence:     analytics.HistoricalPattern,
			Recommendation: analytics.RecommendationFor(analytics.RiskLow),
		}
		return pred, nil
	}
	pred.Assessment = analytics.HistoricalClassifier{}.Assess(analytics.Signal{
		AbsenceRate:         analytics.Fraction(history.Count(attendance.Absent), n),
		ConsecutiveAbsences: history.Streaks().Current,
	})
	pred.Probability = core.Round(pred.Probability, probPrecision)
	return pred, nil
}

func (svc *Service) features(ctx context.Context, std student.Student, date core.Date) (Features, error) {
	history, err := svc.window(ctx, std.ID, date.AddDays(-1-featureDays), date.AddDays(-1))
	if err != nil {
		return Features{}, err
	}
	return BuildFeatures(std.Grade, date, history), nil
}

func (svc *Service) window(ctx context.Context, studentID string, from, to core.Date) (analytics.Window, error) {
	recs, err := svc.attSvc.History(ctx, studentID, from, to)
	if err != nil {
		return analytics.Window{}, err
	}
	return analytics.NewWindow(recs)
}

// Batch predicts every student independently; failures are reported per student.
func (svc *Service) Batch(ctx context.Context, studentIDs []string, date core.Date) BatchResult {
	res := BatchResult{Predictions: []Prediction{}, Errors: []BatchError{}}
	for _, id := range studentIDs {
		p, err := svc.Predict(ctx, id, date)
		if err != nil {
			res.Errors = append(res.Errors, BatchError{StudentID: id, Error: err.Error()})
			continue
		}
		res.Predictions = append(res.Predictions, p)
	}
	res.Summary = BatchSummary{
		TotalRequested:        len(studentIDs),
		SuccessfulPredictions: len(res.Predictions),
		FailedPredictions:     len(res.Errors),
	}
	return res
}

// ClassPredictions ranks the members of a class by their 30-day attendance rate.
// Teachers may only see the classes they teach. A student whose history cannot
// be loaded is reported in Errors and skipped.
func (svc *Service) ClassPredictions(ctx context.Context, classID string, by core.Actor) (ClassPredictions, error) {
	cls, err := svc.clsSvc.Get(ctx, classID)
	if err != nil {
		return ClassPredictions{}, err
	}
	if !by.IsAdmin && !cls.TaughtBy(by.ID) {
		return ClassPredictions{}, core.ErrPermissionDenied
	}

	students, err := svc.stdSvc.ByClass(ctx, classID)
	if err != nil {
		return ClassPredictions{}, err
	}

	today := svc.today()
	from, recentFrom := today.AddDays(-featureDays), today.AddDays(-recentDays)
	res := ClassPredictions{
		ClassID:     cls.ID,
		Predictions: make([]ClassPrediction, 0, len(students)),
		Errors:      []BatchError{},
	}
	for _, std := range students {
		w, err := svc.window(ctx, std.ID, from, today)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("class prediction failed for student %s", std.ID), err)
			res.Errors = append(res.Errors, BatchError{StudentID: std.ID, Error: err.Error()})
			continue
		}

		rate := 1.0
		if w.Len() > 0 {
			rate = analytics.Fraction(w.Count(attendance.Present), w.Len())
		}
		level := classTier(rate)
		recent := w.Between(recentFrom, core.Date{}).Count(attendance.Absent)
		res.Predictions = append(res.Predictions, ClassPrediction{
			StudentID:      std.ID,
			StudentName:    std.FullName(),
			RiskLevel:      level,
			AttendanceRate: core.Round(rate*100, 1),
			RecentAbsences: recent,
			TotalRecords:   w.Len(),
			Recommendation: classRecommendation(level, recent),
		})
		switch level {
		case analytics.RiskHigh:
			res.Summary.HighRisk++
		case analytics.RiskMedium:
			res.Summary.MediumRisk++
		default:
			res.Summary.LowRisk++
		}
	}
	res.Summary.TotalStudents = len(students)

	sort.SliceStable(res.Predictions, func(i, j int) bool {
		return res.Predictions[i].RiskLevel.Priority() < res.Predictions[j].RiskLevel.Priority()
	})
	return res, nil
}

func classTier(rate float64) analytics.RiskLevel {
	switch {
	case rate >= lowRiskRate:
		return analytics.RiskLow
	case rate >= mediumRiskRate:
		return analytics.RiskMedium
	}
	return analytics.RiskHigh
}

func classRecommendation(level analytics.RiskLevel, recentAbsences int) string {
	switch level {
	case analytics.RiskHigh:
		return "Immediate intervention recommended - contact parents and consider support plan"
	case analytics.RiskMedium:
		if recentAbsences >= 2 {
			return "Monitor closely - recent absences indicate potential issues"
		}
		return "Keep monitoring - attendance rate below optimal"
	}
	if recentAbsences >= 3 {
		return "Check for recent issues despite overall good attendance"
	}
	return "Good attendance - continue current approach"
}

// UnusualPatterns scans the last q.DaysBack days of every student with at least
// q.MinRecords records. Students without findings are omitted; per-student
// failures are reported in Errors.
func (svc *Service) UnusualPatterns(ctx context.Context, q PatternQuery) (UnusualPatterns, error) {
	if err := core.Validate.Struct(q); err != nil {
		return UnusualPatterns{}, err
	}
	if q.DaysBack == 0 {
		q.DaysBack = DefaultDaysBack
	}
	detector := analytics.NewDetector(analytics.DetectorOptions{MinRecords: q.MinRecords, DayPatterns: true})

	end := svc.today()
	start := end.AddDays(-q.DaysBack)
	recs, err := svc.attSvc.Query(ctx, attendance.Filter{From: start, To: end})
	if err != nil {
		return UnusualPatterns{}, errors.Wrap(err, "querying attendance records")
	}

	var order []string
	byStudent := map[string][]attendance.Record{}
	for _, rec := range recs {
		if _, ok := byStudent[rec.StudentID]; !ok {
			order = append(order, rec.StudentID)
		}
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	res := UnusualPatterns{
		UnusualPatterns: []UnusualPattern{},
		AnalysisPeriod:  AnalysisPeriod{StartDate: start, EndDate: end, DaysAnalyzed: q.DaysBack},
		Errors:          []BatchError{},
	}
	fail := func(id string, err error) {
		svc.logger.Warn(fmt.Sprintf("pattern analysis failed for student %s", id), err)
		res.Errors = append(res.Errors, BatchError{StudentID: id, Error: err.Error()})
	}
	var found []analytics.StudentPatterns
	refs := map[string]StudentRef{}
	for _, id := range order {
		w, err := analytics.NewWindow(byStudent[id])
		if err != nil {
			fail(id, err)
			continue
		}
		if !detector.Eligible(w) {
			continue
		}
		std, err := svc.stdSvc.Get(ctx, id)
		if err != nil {
			if !core.IsNotFound(err) {
				fail(id, err)
			}
			continue
		}
		res.Summary.StudentsAnalyzed++

		findings := detector.Detect(w)
		if len(findings) == 0 {
			continue
		}
		refs[id] = StudentRef{ID: std.ID, Name: std.FullName(), Grade: std.Grade, StudentNumber: std.StudentNumber}
		found = append(found, analytics.StudentPatterns{
			StudentID:   id,
			StudentName: std.FullName(),
			Patterns:    findings,
			Statistics:  analytics.Stats(w),
		})
	}

	analytics.RankBySeverity(found)
	for _, sp := range found {
		res.UnusualPatterns = append(res.UnusualPatterns, UnusualPattern{
			Student:    refs[sp.StudentID],
			Patterns:   sp.Patterns,
			Statistics: sp.Statistics,
		})
		if analytics.HighSeverityCount(sp.Patterns) > 0 {
			res.Summary.HighSeverityCases++
		}
	}
	res.Summary.UnusualPatternsFound = len(res.UnusualPatterns)
	return res, nil
}
