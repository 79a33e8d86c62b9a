package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/model"
)

// Student is the classroom data held for one student.
type Student struct {
	Courses    []model.Course
	CourseWork map[string][]model.CourseWork // by course ID
}

// Provider implements adapter.ClassroomProvider from an in-memory roster.
// It backs DEV_MODE and tests; students are keyed by email.
type Provider struct {
	mu       sync.RWMutex
	students map[string]*Student
	failing  map[string]error // course ID -> error returned by ListCourseWork
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{
		students: make(map[string]*Student),
		failing:  make(map[string]error),
	}
}

// AddCourse registers an active course for a student.
func (p *Provider) AddCourse(email string, course model.Course, work ...model.CourseWork) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.students[email]
	if !ok {
		s = &Student{CourseWork: make(map[string][]model.CourseWork)}
		p.students[email] = s
	}
	s.Courses = append(s.Courses, course)
	s.CourseWork[course.ID] = append(s.CourseWork[course.ID], work...)
}

// FailCourse makes ListCourseWork fail for courseID.
func (p *Provider) FailCourse(courseID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[courseID] = err
}

// GetClassroom returns the in-memory classroom for email.
// Unknown students have no courses.
func (p *Provider) GetClassroom(_ context.Context, email string) (adapter.Classroom, error) {
	return &MemoryClassroom{provider: p, email: email}, nil
}

// MemoryClassroom implements adapter.Classroom for one student of a Provider.
type MemoryClassroom struct {
	provider *Provider
	email    string
}

// ListActiveCourses lists the student's courses in insertion order.
func (m *MemoryClassroom) ListActiveCourses(_ context.Context) ([]model.Course, error) {
	m.provider.mu.RLock()
	defer m.provider.mu.RUnlock()

	s, ok := m.provider.students[m.email]
	if !ok {
		return []model.Course{}, nil
	}
	courses := make([]model.Course, len(s.Courses))
	copy(courses, s.Courses)
	return courses, nil
}

// ListCourseWork returns up to limit items ordered by due date descending.
// Items without a due date sort last, as the upstream platform orders them.
func (m *MemoryClassroom) ListCourseWork(ctx context.Context, courseID string, limit int) ([]model.CourseWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrUpstreamFailure, err)
	}

	m.provider.mu.RLock()
	defer m.provider.mu.RUnlock()

	if err, ok := m.provider.failing[courseID]; ok {
		return nil, fmt.Errorf("%w: course %s: %v", adapter.ErrUpstreamFailure, courseID, err)
	}

	s, ok := m.provider.students[m.email]
	if !ok {
		return nil, fmt.Errorf("%w: course %s not found", adapter.ErrUpstreamFailure, courseID)
	}
	work, ok := s.CourseWork[courseID]
	if !ok {
		return nil, fmt.Errorf("%w: course %s not found", adapter.ErrUpstreamFailure, courseID)
	}

	items := make([]model.CourseWork, len(work))
	copy(items, work)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].DueDate, items[j].DueDate
		if !a.Complete() || !b.Complete() {
			return a.Complete() && !b.Complete()
		}
		return a.In(time.UTC).After(b.In(time.UTC))
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SeedDemo registers demo courses for email with homework due around today.
func SeedDemo(p *Provider, email string, today time.Time) {
	due := func(days int) *model.DueDate {
		d := today.AddDate(0, 0, days)
		return &model.DueDate{Year: d.Year(), Month: int(d.Month()), Day: d.Day()}
	}

	p.AddCourse(email, model.Course{ID: "demo-maths", Name: "10Ma1"},
		model.CourseWork{Title: "Quadratics worksheet", Description: "Questions 1-12 on page 48.", DueDate: due(1)},
		model.CourseWork{Title: "Simultaneous equations", DueDate: due(-3)},
	)
	p.AddCourse(email, model.Course{ID: "demo-english", Name: "10En2"},
		model.CourseWork{Title: "Macbeth essay plan", Description: "  Plan an answer on Act 1 Scene 7.\n", DueDate: due(6)},
		model.CourseWork{Title: "Reading log", DueDate: due(-12)},
	)
	p.AddCourse(email, model.Course{ID: "demo-science", Name: "10Sc3"},
		model.CourseWork{Title: "Revise cell structure", DueDate: due(14)},
	)
}
