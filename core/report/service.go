// Package report aggregates attendance records into daily, weekly, monthly,
// per-student and date-range summaries.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
)

var ErrInvalidRange = errors.New("start_date must be before or equal to end_date")

type Service struct {
	attSvc  *attendance.Service
	stdSvc  *student.Service
	clsSvc  *class.Service
	nowFunc func() time.Time
}

func NewService(attSvc *attendance.Service, stdSvc *student.Service, clsSvc *class.Service) *Service {
	return &Service{attSvc: attSvc, stdSvc: stdSvc, clsSvc: clsSvc, nowFunc: time.Now}
}

func (svc *Service) today() core.Date { return core.DateOf(svc.nowFunc()) }

// rate returns count/total as a percentage rounded to `places` decimals, 0 when total is 0.
func rate(count, total, places int) float64 {
	return core.Round(analytics.Fraction(count, total)*100, places)
}

func parseDate(field, s string, fallback core.Date) (core.Date, error) {
	if s = core.CleanString(s); s == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return d, nil
}

// classes returns the requested class, or every class when classID is empty.
func (svc *Service) classes(ctx context.Context, classID string) ([]class.Class, error) {
	if classID == "" {
		return svc.clsSvc.Query(ctx, class.QueryFilter{}, nil)
	}
	cls, err := svc.clsSvc.Get(ctx, classID)
	if err != nil {
		return nil, err
	}
	return []class.Class{cls}, nil
}

// students returns the active students of the class, or every active student when classID is empty.
func (svc *Service) students(ctx context.Context, classID string) ([]student.Student, error) {
	if classID == "" {
		return svc.stdSvc.Active(ctx)
	}
	return svc.stdSvc.ByClass(ctx, classID)
}

func groupByStudent(records []attendance.Record) map[string][]attendance.Record {
	out := make(map[string][]attendance.Record)
	for _, rec := range records {
		out[rec.StudentID] = append(out[rec.StudentID], rec)
	}
	return out
}

func summarize(s student.Student, records []attendance.Record) StudentSummary {
	r := analytics.CalculateRates(records)
	return StudentSummary{
		Student: refOf(s),
		Statistics: StudentStatistics{
			TotalDays:      r.Total,
			Counts:         countsOf(r),
			AttendanceRate: rate(r.Present(), r.Total, 1),
			AbsenceRate:    rate(r.Absent(), r.Total, 1),
		},
	}
}

// Daily lists the status of every student of each class on one day.
func (svc *Service) Daily(ctx context.Context, q DailyQuery) (Daily, error) {
	if err := core.Validate.Struct(q); err != nil {
		return Daily{}, err
	}
	date, err := parseDate("date", q.Date, svc.today())
	if err != nil {
		return Daily{}, err
	}
	classID := core.CleanString(q.ClassID)

	classes, err := svc.classes(ctx, classID)
	if err != nil {
		return Daily{}, err
	}
	records, err := svc.attSvc.Query(ctx, attendance.Filter{ClassID: classID, From: date, To: date})
	if err != nil {
		return Daily{}, errors.Wrap(err, "querying attendance records")
	}

	rep := Daily{Date: date, Classes: make([]DailyClass, 0, len(classes))}
	for _, cls := range classes {
		students, err := svc.stdSvc.ByClass(ctx, cls.ID)
		if err != nil {
			return Daily{}, errors.Wrapf(err, "listing students of class %s", cls.ID)
		}
		marks := make(map[string]attendance.Record)
		for _, rec := range records {
			if rec.ClassID == cls.ID {
				marks[rec.StudentID] = rec
			}
		}

		dc := DailyClass{
			ID:            cls.ID,
			Name:          cls.Name,
			Subject:       cls.Subject,
			TeacherName:   cls.TeacherName,
			TotalStudents: len(students),
			Students:      make([]DailyStudent, 0, len(students)),
		}
		for _, s := range students {
			ds := DailyStudent{ID: s.ID, Name: s.FullName(), StudentNumber: s.StudentNumber, Status: NotMarked}
			if rec, ok := marks[s.ID]; ok {
				markedAt := rec.MarkedAt
				ds.Status = string(rec.Status)
				ds.Notes = rec.Notes
				ds.MarkedAt = &markedAt
				dc.Summary.add(rec.Status)
			} else {
				dc.Summary.NotMarked++
			}
			dc.Students = append(dc.Students, ds)
		}
		sort.SliceStable(dc.Students, func(i, j int) bool { return dc.Students[i].Name < dc.Students[j].Name })
		// Present over the enrolled students, not over the marked ones.
		dc.AttendanceRate = rate(dc.Summary.Present, len(students), 1)

		rep.Classes = append(rep.Classes, dc)
		rep.Summary.TotalStudents += len(students)
		rep.Summary.Present += dc.Summary.Present
		rep.Summary.Absent += dc.Summary.Absent
		rep.Summary.Late += dc.Summary.Late
		rep.Summary.Excused += dc.Summary.Excused
		rep.Summary.NotMarked += dc.Summary.NotMarked
	}
	rep.Summary.AttendanceRate = rate(rep.Summary.Present, rep.Summary.TotalStudents, 1)
	rep.Summary.AbsenceRate = rate(rep.Summary.Absent, rep.Summary.TotalStudents, 1)
	return rep, nil
}

// Weekly breaks down the 7 days starting at WeekStart (this week's Monday by default).
func (svc *Service) Weekly(ctx context.Context, q WeeklyQuery) (Weekly, error) {
	if err := core.Validate.Struct(q); err != nil {
		return Weekly{}, err
	}
	start, err := parseDate("week_start", q.WeekStart, svc.today().WeekStart())
	if err != nil {
		return Weekly{}, err
	}
	end := start.AddDays(6)
	classID := core.CleanString(q.ClassID)

	students, err := svc.students(ctx, classID)
	if err != nil {
		return Weekly{}, err
	}
	records, err := svc.attSvc.Query(ctx, attendance.Filter{ClassID: classID, From: start, To: end})
	if err != nil {
		return Weekly{}, errors.Wrap(err, "querying attendance records")
	}

	rep := Weekly{
		WeekStart:        start,
		WeekEnd:          end,
		DailyBreakdown:   make([]DayBreakdown, 0, 7),
		StudentSummaries: make([]StudentSummary, 0, len(students)),
	}

	byDay := make(map[string][]attendance.Record)
	for _, rec := range records {
		byDay[rec.Date.String()] = append(byDay[rec.Date.String()], rec)
	}
	for d := start; !d.After(end); d = d.AddDays(1) {
		r := analytics.CalculateRates(byDay[d.String()])
		rep.DailyBreakdown = append(rep.DailyBreakdown, DayBreakdown{
			Date:           d,
			DayName:        d.Weekday().String(),
			Counts:         countsOf(r),
			Total:          r.Total,
			AttendanceRate: rate(r.Present(), r.Total, 1),
		})
		if r.Total > 0 {
			rep.Summary.DaysAnalyzed++
		}
	}

	byStudent := groupByStudent(records)
	var rateSum float64
	for _, s := range students {
		ss := summarize(s, byStudent[s.ID])
		rateSum += analytics.Fraction(ss.Statistics.Present, ss.Statistics.TotalDays) * 100
		rep.Summary.TotalAbsences += ss.Statistics.Absent
		rep.Summary.TotalTardiness += ss.Statistics.Late
		rep.StudentSummaries = append(rep.StudentSummaries, ss)
	}
	sort.SliceStable(rep.StudentSummaries, func(i, j int) bool {
		return rep.StudentSummaries[i].Statistics.AttendanceRate < rep.StudentSummaries[j].Statistics.AttendanceRate
	})

	rep.Summary.TotalStudents = len(students)
	if len(students) > 0 {
		rep.Summary.AverageAttendanceRate = core.Round(rateSum/float64(len(students)), 1)
	}
	return rep, nil
}

// Monthly summarizes a calendar month and compares it with the previous one.
func (svc *Service) Monthly(ctx context.Context, q MonthlyQuery) (Monthly, error) {
	if err := core.Validate.Struct(q); err != nil {
		return Monthly{}, err
	}
	today := svc.today()
	if q.Year == 0 {
		q.Year = today.Year()
	}
	if q.Month == 0 {
		q.Month = int(today.Month())
	}
	classID := core.CleanString(q.ClassID)

	start := core.NewDate(q.Year, time.Month(q.Month), 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	prevStart := core.Date{Time: start.AddDate(0, -1, 0)}
	prevEnd := start.AddDays(-1)

	students, err := svc.students(ctx, classID)
	if err != nil {
		return Monthly{}, err
	}
	records, err := svc.attSvc.Query(ctx, attendance.Filter{ClassID: classID, From: start, To: end})
	if err != nil {
		return Monthly{}, errors.Wrap(err, "querying attendance records")
	}
	prevRecords, err := svc.attSvc.Query(ctx, attendance.Filter{ClassID: classID, From: prevStart, To: prevEnd})
	if err != nil {
		return Monthly{}, errors.Wrap(err, "querying previous month records")
	}

	schoolDays := make(map[string]struct{})
	for _, rec := range records {
		schoolDays[rec.Date.String()] = struct{}{}
	}
	r := analytics.CalculateRates(records)
	rep := Monthly{
		Year:      q.Year,
		Month:     q.Month,
		MonthName: start.Month().String(),
		Period: Period{
			StartDate:  start,
			EndDate:    end,
			TotalDays:  start.DaysUntil(end) + 1,
			SchoolDays: len(schoolDays),
		},
		Summary: MonthlySummary{
			TotalStudents:  len(students),
			TotalRecords:   r.Total,
			Counts:         countsOf(r),
			AttendanceRate: rate(r.Present(), r.Total, 1),
			AbsenceRate:    rate(r.Absent(), r.Total, 1),
		},
		TopPerformers:  []StudentSummary{},
		StudentsAtRisk: []StudentSummary{},
	}

	if prev := analytics.CalculateRates(prevRecords); prev.Total > 0 {
		change := analytics.Fraction(r.Present(), r.Total) - analytics.Fraction(prev.Present(), prev.Total)
		rep.Trends = &Trends{
			AttendanceRateChange: core.Round(change*100, 1),
			TotalAbsencesChange:  r.Absent() - prev.Absent(),
			ComparisonPeriod:     prevStart.Format("January 2006"),
		}
	}

	byStudent := groupByStudent(records)
	performance := make([]StudentSummary, 0, len(students))
	for _, s := range students {
		if recs := byStudent[s.ID]; len(recs) > 0 {
			performance = append(performance, summarize(s, recs))
		}
	}
	sort.SliceStable(performance, func(i, j int) bool {
		return performance[i].Statistics.AttendanceRate > performance[j].Statistics.AttendanceRate
	})
	for i, ss := range performance {
		if i < topPerformers {
			rep.TopPerformers = append(rep.TopPerformers, ss)
		}
		if ss.Statistics.AttendanceRate < AtRiskRate {
			rep.StudentsAtRisk = append(rep.StudentsAtRisk, ss)
		}
	}
	return rep, nil
}

// Student reports on one student over the last DaysBack days.
func (svc *Service) Student(ctx context.Context, studentID string, q StudentQuery) (StudentReport, error) {
	if err := core.Validate.Struct(q); err != nil {
		return StudentReport{}, err
	}
	if q.DaysBack == 0 {
		q.DaysBack = DefaultDaysBack
	}
	s, err := svc.stdSvc.Get(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}

	end := svc.today()
	start := end.AddDays(-q.DaysBack)
	records, err := svc.attSvc.History(ctx, s.ID, start, end)
	if err != nil {
		return StudentReport{}, err
	}
	w, err := analytics.NewWindow(records)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "building attendance window")
	}

	r := w.Rates()
	ref := refOf(s)
	ref.ClassID = s.ClassID
	rep := StudentReport{
		Student: ref,
		Period:  StudentPeriod{StartDate: start, EndDate: end, DaysAnalyzed: q.DaysBack},
		Statistics: StudentRates{
			TotalDays:      r.Total,
			Counts:         countsOf(r),
			AttendanceRate: rate(r.Present(), r.Total, 1),
			AbsenceRate:    rate(r.Absent(), r.Total, 1),
			TardinessRate:  rate(r.Late(), r.Total, 1),
		},
		Patterns:        analytics.StudentFindings(w),
		RecentRecords:   recent(w.Records(), recentRecords),
		Recommendations: []Recommendation{},
	}
	if rep.Patterns == nil {
		rep.Patterns = []analytics.Finding{}
	}

	if r.Total > 0 {
		rep.Recommendations = recommend(rep.Statistics, w.Streaks().Max)
	}
	return rep, nil
}

// recent returns the last n records, newest first. records must be sorted ascending.
func recent(records []attendance.Record, n int) []attendance.Record {
	out := make([]attendance.Record, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out
}

func recommend(stats StudentRates, maxStreak int) []Recommendation {
	recs := []Recommendation{}
	if stats.AttendanceRate < AtRiskRate {
		recs = append(recs, Recommendation{
			Type:     "attendance_intervention",
			Message:  "Student attendance is below acceptable threshold. Consider parent conference.",
			Priority: "high",
		})
	}
	if stats.TardinessRate > tardinessRate {
		recs = append(recs, Recommendation{
			Type:     "tardiness_support",
			Message:  "Student shows pattern of tardiness. Investigate potential causes.",
			Priority: "medium",
		})
	}
	if maxStreak >= followUpStreak {
		recs = append(recs, Recommendation{
			Type:     "absence_follow_up",
			Message:  "Student has had consecutive absences. Follow up on reasons and provide support.",
			Priority: "high",
		})
	}
	return recs
}

// Range returns per-day totals between two dates, newest first. Days without records are omitted.
func (svc *Service) Range(ctx context.Context, q RangeQuery) (Range, error) {
	if err := core.Validate.Struct(q); err != nil {
		return Range{}, err
	}
	start, err := parseDate("start_date", q.StartDate, core.Date{})
	if err != nil {
		return Range{}, err
	}
	end, err := parseDate("end_date", q.EndDate, core.Date{})
	if err != nil {
		return Range{}, err
	}
	if start.After(end) {
		return Range{}, core.NewValidationError(ErrInvalidRange, core.FieldError{Field: "start_date", Error: ErrInvalidRange.Error()})
	}

	records, err := svc.attSvc.Query(ctx, attendance.Filter{ClassID: core.CleanString(q.ClassID), From: start, To: end})
	if err != nil {
		return Range{}, errors.Wrap(err, "querying attendance records")
	}

	byDay := make(map[string][]attendance.Record)
	var days []core.Date
	for _, rec := range records {
		key := rec.Date.String()
		if _, ok := byDay[key]; !ok {
			days = append(days, rec.Date)
		}
		byDay[key] = append(byDay[key], rec)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	rep := Range{StartDate: start, EndDate: end, Days: make([]RangeDay, 0, len(days))}
	for _, d := range days {
		r := analytics.CalculateRates(byDay[d.String()])
		rep.Days = append(rep.Days, RangeDay{
			Date:           d,
			TotalPresent:   r.Present(),
			TotalAbsent:    r.Absent(),
			Late:           r.Late(),
			Excused:        r.Excused(),
			TotalExpected:  r.Total,
			AttendanceRate: rate(r.Present(), r.Total, 2),
		})
	}
	return rep, nil
}

// Statistics counts the records matching the query params by status.
func (svc *Service) Statistics(ctx context.Context, qp attendance.QueryParams) (Statistics, error) {
	filter, err := qp.Filter()
	if err != nil {
		return Statistics{}, err
	}
	records, err := svc.attSvc.Query(ctx, filter)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "querying attendance records")
	}
	students := make(map[string]struct{})
	for _, rec := range records {
		students[rec.StudentID] = struct{}{}
	}
	return Statistics{Rates: analytics.CalculateRates(records), StudentsCount: len(students)}, nil
}
