package prediction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/prediction"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/testutil"
)

const (
	P = attendance.Present
	A = attendance.Absent
)

// Friday
var now = time.Date(2024, 3, 22, 9, 0, 0, 0, time.UTC)

type fixedModel struct {
	p   float64
	err error
}

func (m fixedModel) PredictProbability(prediction.Features) (float64, error) { return m.p, m.err }

type memCache struct {
	mu      sync.Mutex
	items   map[string]prediction.Prediction
	gets    int
	sets    int
	failGet bool
}

func newMemCache() *memCache { return &memCache{items: map[string]prediction.Prediction{}} }

func (c *memCache) Get(_ context.Context, key string) (prediction.Prediction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return prediction.Prediction{}, false, errors.New("connection refused")
	}
	p, ok := c.items[key]
	return p, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, p prediction.Prediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.items[key] = p
	return nil
}

// flakyStudents fails every lookup of one student.
type flakyStudents struct {
	student.Repository
	failID string
}

func (r flakyStudents) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if id == r.failID {
		return student.Student{}, errors.New("connection reset by peer")
	}
	return r.Repository.GetStudent(ctx, id)
}

type fixture struct {
	env     *testutil.Env
	cls     class.Class
	regular student.Student // present Mar 12 - Mar 21, absent on the first and last day
	absent  student.Student // absent Mar 18 - Mar 22
	good    student.Student // present Mar 13 - Mar 22
	newbie  student.Student // no records
}

func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv()
	teacher := "teacher-1"
	cls := testutil.CreateClass(t, env.Repos.Classes, class.Class{Name: "History", TeacherID: &teacher})

	f := fixture{env: env, cls: cls}
	f.regular = testutil.CreateStudent(t, env.Repos.Students, student.Student{FirstName: "Rita", LastName: "Regular", Grade: 9})
	f.absent = testutil.CreateStudent(t, env.Repos.Students, student.Student{FirstName: "Abe", LastName: "Absent", ClassID: &cls.ID})
	f.good = testutil.CreateStudent(t, env.Repos.Students, student.Student{FirstName: "Gail", LastName: "Good", ClassID: &cls.ID})
	f.newbie = testutil.CreateStudent(t, env.Repos.Students, student.Student{FirstName: "Ned", LastName: "New"})

	regular := testutil.Repeat(P, 10)
	regular[0], regular[9] = A, A
	testutil.Mark(t, env.Repos.Attendance, f.regular.ID, cls.ID, core.NewDate(2024, 3, 12), regular...)
	testutil.Mark(t, env.Repos.Attendance, f.absent.ID, cls.ID, core.NewDate(2024, 3, 18), testutil.Repeat(A, 5)...)
	testutil.Mark(t, env.Repos.Attendance, f.good.ID, cls.ID, core.NewDate(2024, 3, 13), testutil.Repeat(P, 10)...)
	return f
}

func (f fixture) service(t *testing.T, models *prediction.ModelCache, cache prediction.Cache) *prediction.Service {
	svc := prediction.NewService(prediction.Deps{
		Attendance: f.env.Attendance,
		Students:   f.env.Students,
		Classes:    f.env.Classes,
		Models:     models,
		ModelName:  "absence",
		Cache:      cache,
		Logger:     testutil.NewLogger(t),
	})
	svc.SetNow(testutil.Fixed(now))
	return svc
}

// flakyService is a Service whose repositories fail for the student failID.
func (f fixture) flakyService(t *testing.T, failID string) *prediction.Service {
	stdRepo := flakyStudents{Repository: f.env.Repos.Students, failID: failID}
	svc := prediction.NewService(prediction.Deps{
		Attendance: attendance.NewService(f.env.Repos.Attendance, stdRepo, f.env.Repos.Classes),
		Students:   student.NewService(stdRepo, f.env.Repos.Classes),
		Classes:    f.env.Classes,
		Logger:     testutil.NewLogger(t),
	})
	svc.SetNow(testutil.Fixed(now))
	return svc
}

func TestService_Predict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := core.NewDate(2024, 3, 22)

	withModel := func(m prediction.Model) *prediction.ModelCache {
		mc := prediction.NewModelCache("")
		mc.Put("absence", m)
		return mc
	}

	tests := []struct {
		name        string
		models      *prediction.ModelCache
		studentID   string
		probability float64
		level       analytics.RiskLevel
		confidence  analytics.Confidence
		records     int // -1 when the model path is expected
	}{
		{
			name:        "no history",
			studentID:   f.newbie.ID,
			probability: 0.1,
			level:       analytics.RiskLow,
			confidence:  analytics.HistoricalPattern,
			records:     0,
		},
		{
			name:        "history adjusted by current streak",
			studentID:   f.regular.ID,
			probability: 0.4,
			level:       analytics.RiskMedium,
			confidence:  analytics.HistoricalPattern,
			records:     10,
		},
		{
			name:        "model",
			models:      withModel(fixedModel{p: 0.75}),
			studentID:   f.regular.ID,
			probability: 0.75,
			level:       analytics.RiskHigh,
			confidence:  analytics.ModelBased,
			records:     -1,
		},
		{
			name:        "failing model falls back",
			models:      withModel(fixedModel{err: errors.New("bad input")}),
			studentID:   f.regular.ID,
			probability: 0.4,
			level:       analytics.RiskMedium,
			confidence:  analytics.HistoricalPattern,
			records:     10,
		},
		{
			name:        "missing model artifact falls back",
			models:      prediction.NewModelCache(t.TempDir()),
			studentID:   f.newbie.ID,
			probability: 0.1,
			level:       analytics.RiskLow,
			confidence:  analytics.HistoricalPattern,
			records:     0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := f.service(t, tc.models, nil)

			p, err := svc.Predict(ctx, tc.studentID, target)
			require.NoError(t, err)

			assert.Equal(t, tc.probability, p.Probability)
			assert.Equal(t, tc.level, p.RiskLevel)
			assert.Equal(t, tc.confidence, p.Confidence)
			assert.Equal(t, analytics.RecommendationFor(tc.level), p.Recommendation)
			assert.Equal(t, target, p.PredictionDate)
			if tc.records < 0 {
				assert.Nil(t, p.HistoricalRecords)
				assert.Equal(t, len(prediction.FeatureNames), p.FeaturesUsed)
				require.NotNil(t, p.Features)
				assert.Equal(t, 9, p.Features.Grade)
				assert.True(t, p.Features.IsFriday)
			} else {
				require.NotNil(t, p.HistoricalRecords)
				assert.Equal(t, tc.records, *p.HistoricalRecords)
				assert.Nil(t, p.Features)
			}
		})
	}

	t.Run("defaults to tomorrow", func(t *testing.T) {
		p, err := f.service(t, nil, nil).Predict(ctx, f.newbie.ID, core.Date{})
		require.NoError(t, err)
		assert.Equal(t, "2024-03-23", p.PredictionDate.String())
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := f.service(t, nil, nil).Predict(ctx, "nope", target)
		assert.True(t, core.IsNotFound(err))
	})
}

func TestService_PredictCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := core.NewDate(2024, 3, 22)

	t.Run("cache aside", func(t *testing.T) {
		cache := newMemCache()
		svc := f.service(t, nil, cache)

		first, err := svc.Predict(ctx, f.regular.ID, target)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.sets)

		cached := first
		cached.Probability = 0.99
		require.NoError(t, cache.Set(ctx, prediction.CacheKey(f.regular.ID, target), cached))

		second, err := svc.Predict(ctx, f.regular.ID, target)
		require.NoError(t, err)
		assert.Equal(t, 0.99, second.Probability)
		assert.Equal(t, 2, cache.gets)
	})

	t.Run("cache failure is not fatal", func(t *testing.T) {
		cache := newMemCache()
		cache.failGet = true
		svc := f.service(t, nil, cache)

		p, err := svc.Predict(ctx, f.regular.ID, target)
		require.NoError(t, err)
		assert.Equal(t, 0.4, p.Probability)
	})
}

func TestService_Batch(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil, nil)

	res := svc.Batch(context.Background(), []string{f.regular.ID, "nope", f.newbie.ID}, core.Date{})

	require.Len(t, res.Predictions, 2)
	assert.Equal(t, f.regular.ID, res.Predictions[0].StudentID)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "nope", res.Errors[0].StudentID)
	assert.Equal(t, prediction.BatchSummary{TotalRequested: 3, SuccessfulPredictions: 2, FailedPredictions: 1}, res.Summary)
}

func TestService_ClassPredictions(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   core.Actor
		wantErr error
	}{
		{name: "class teacher", actor: core.Actor{ID: "teacher-1"}},
		{name: "admin", actor: core.Actor{ID: "admin-1", IsAdmin: true}},
		{name: "other teacher", actor: core.Actor{ID: "teacher-2"}, wantErr: core.ErrPermissionDenied},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.ClassPredictions(ctx, f.cls.ID, tc.actor)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)

			require.Len(t, res.Predictions, 2)
			high, low := res.Predictions[0], res.Predictions[1]
			assert.Equal(t, f.absent.ID, high.StudentID)
			assert.Equal(t, analytics.RiskHigh, high.RiskLevel)
			assert.Equal(t, 0.0, high.AttendanceRate)
			assert.Equal(t, 5, high.RecentAbsences)
			assert.Equal(t, "Immediate intervention recommended - contact parents and consider support plan", high.Recommendation)

			assert.Equal(t, f.good.ID, low.StudentID)
			assert.Equal(t, analytics.RiskLow, low.RiskLevel)
			assert.Equal(t, 100.0, low.AttendanceRate)
			assert.Equal(t, 10, low.TotalRecords)
			assert.Equal(t, "Good attendance - continue current approach", low.Recommendation)

			assert.Equal(t, 2, res.Summary.TotalStudents)
			assert.Equal(t, 1, res.Summary.HighRisk)
			assert.Equal(t, 1, res.Summary.LowRisk)
		})
	}

	t.Run("unknown class", func(t *testing.T) {
		_, err := svc.ClassPredictions(ctx, "nope", core.Actor{IsAdmin: true})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("student failure is reported", func(t *testing.T) {
		res, err := f.flakyService(t, f.absent.ID).ClassPredictions(ctx, f.cls.ID, core.Actor{IsAdmin: true})
		require.NoError(t, err)

		require.Len(t, res.Predictions, 1)
		assert.Equal(t, f.good.ID, res.Predictions[0].StudentID)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, f.absent.ID, res.Errors[0].StudentID)
		assert.Contains(t, res.Errors[0].Error, "connection reset by peer")
		assert.Equal(t, 1, res.Summary.LowRisk)
		assert.Equal(t, 0, res.Summary.HighRisk)
	})
}

func TestService_UnusualPatterns(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil, nil)
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		res, err := svc.UnusualPatterns(ctx, prediction.PatternQuery{})
		require.NoError(t, err)

		assert.Equal(t, "2024-02-21", res.AnalysisPeriod.StartDate.String())
		assert.Equal(t, prediction.DefaultDaysBack, res.AnalysisPeriod.DaysAnalyzed)
		assert.Equal(t, 3, res.Summary.StudentsAnalyzed)
		assert.Equal(t, 1, res.Summary.HighSeverityCases)
		assert.Empty(t, res.Errors)

		require.NotEmpty(t, res.UnusualPatterns)
		top := res.UnusualPatterns[0]
		assert.Equal(t, f.absent.ID, top.Student.ID)
		assert.Equal(t, 2, analytics.HighSeverityCount(top.Patterns))
		assert.Equal(t, 1.0, top.Statistics.AbsenceRate)
		for _, up := range res.UnusualPatterns {
			assert.NotEqual(t, f.good.ID, up.Student.ID)
		}
	})

	t.Run("min records", func(t *testing.T) {
		res, err := svc.UnusualPatterns(ctx, prediction.PatternQuery{MinRecords: 6})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Summary.StudentsAnalyzed)
		for _, up := range res.UnusualPatterns {
			assert.NotEqual(t, f.absent.ID, up.Student.ID)
		}
	})

	t.Run("invalid days back", func(t *testing.T) {
		_, err := svc.UnusualPatterns(ctx, prediction.PatternQuery{DaysBack: 400})
		assert.Error(t, err)
	})

	t.Run("student failure is reported", func(t *testing.T) {
		res, err := f.flakyService(t, f.absent.ID).UnusualPatterns(ctx, prediction.PatternQuery{})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Summary.StudentsAnalyzed)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, f.absent.ID, res.Errors[0].StudentID)
		assert.Contains(t, res.Errors[0].Error, "connection reset by peer")
		for _, up := range res.UnusualPatterns {
			assert.NotEqual(t, f.absent.ID, up.Student.ID)
		}
	})
}
