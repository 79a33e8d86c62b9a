// Package homework aggregates a student's upcoming coursework across courses.
package homework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/model"
)

const (
	// WildcardSuffix keeps every course regardless of name.
	WildcardSuffix = "*"

	lookAheadDays = 21
	lookBackDays  = 7
)

// Result is the outcome of one aggregation.
type Result struct {
	Homework []model.Homework
	// FailedCourses counts courses whose coursework could not be fetched and were omitted.
	FailedCourses int
}

// Aggregator fetches and normalizes homework for one student per call.
// It holds no per-request state.
type Aggregator struct {
	provider adapter.ClassroomProvider
	suffix   string
	loc      *time.Location
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Config holds the Aggregator settings.
type Config struct {
	// CourseSuffix filters course names; WildcardSuffix disables filtering.
	CourseSuffix string
	// Location defines "today" and the midnight of each due date.
	Location *time.Location
	// Timeout bounds each upstream call; zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(provider adapter.ClassroomProvider, cfg Config) *Aggregator {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		provider: provider,
		suffix:   cfg.CourseSuffix,
		loc:      loc,
		timeout:  cfg.Timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNow overrides the time function (for testing).
func (a *Aggregator) SetNow(fn func() time.Time) {
	a.now = fn
}

// Fetch returns the in-window homework of the student with the given email,
// sorted by due date. Authentication and course listing failures are fatal;
// a failing course is omitted and counted in Result.FailedCourses.
func (a *Aggregator) Fetch(ctx context.Context, email string) (*Result, error) {
	var classroom adapter.Classroom
	err := a.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		classroom, err = a.provider.GetClassroom(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}

	var courses []model.Course
	err = a.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		courses, err = classroom.ListActiveCourses(ctx)
		return err
	})
	if err != nil {
		return nil, upstream(fmt.Errorf("listing courses: %w", err))
	}
	courses = a.filterCourses(courses)

	// Each goroutine writes only its own slot.
	lists := make([][]model.CourseWork, len(courses))
	errs := make([]error, len(courses))
	var wg sync.WaitGroup
	for i, course := range courses {
		i, course := i, course // per-iteration copies (go directive is 1.21)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = a.withTimeout(ctx, func(ctx context.Context) error {
				var err error
				lists[i], err = classroom.ListCourseWork(ctx, course.ID, adapter.MaxCourseWork)
				return err
			})
		}()
	}
	wg.Wait()

	today := a.today()
	result := &Result{Homework: []model.Homework{}}
	for i, course := range courses {
		if errs[i] != nil {
			result.FailedCourses++
			a.logger.WarnContext(ctx, "omitting course after coursework fetch failed",
				"course_id", course.ID,
				"error", errs[i],
			)
			continue
		}
		result.Homework = append(result.Homework, collect(lists[i], course, today)...)
	}

	sort.SliceStable(result.Homework, func(i, j int) bool {
		return result.Homework[i].DueDate.Before(result.Homework[j].DueDate)
	})
	return result, nil
}

func (a *Aggregator) filterCourses(courses []model.Course) []model.Course {
	if a.suffix == WildcardSuffix {
		return courses
	}
	kept := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if strings.HasSuffix(c.Name, a.suffix) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (a *Aggregator) today() time.Time {
	now := a.now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}

func (a *Aggregator) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func upstream(err error) error {
	if errors.Is(err, adapter.ErrUpstreamFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", adapter.ErrUpstreamFailure, err)
}

// collect walks a due-date-descending list and keeps items due between one
// week before and three weeks after today.
func collect(items []model.CourseWork, course model.Course, today time.Time) []model.Homework {
	latest := today.AddDate(0, 0, lookAheadDays)
	earliest := today.AddDate(0, 0, -lookBackDays)
	subject := Subject(course.Name)

	var out []model.Homework
	for _, item := range items {
		if !item.DueDate.Complete() {
			continue
		}
		due := item.DueDate.In(today.Location())
		if due.After(latest) {
			continue
		}
		if due.Before(earliest) {
			// Everything after this is older still.
			break
		}
		out = append(out, model.Homework{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			DueDate:     due,
			Subject:     subject,
		})
	}
	return out
}
