package adapter

import (
	"context"

	"github.com/jun/homeworklink/internal/model"
)

const (
	// MaxCourses is the page size used when listing a student's courses.
	MaxCourses = 1000

	// MaxCourseWork is how many of the latest-due items are fetched per course.
	MaxCourseWork = 25
)

// Classroom defines the read-only operations the aggregator needs from a
// classroom platform, already scoped to one student.
type Classroom interface {
	// ListActiveCourses lists the student's active courses.
	ListActiveCourses(ctx context.Context) ([]model.Course, error)

	// ListCourseWork lists up to limit coursework items of a course,
	// ordered by due date descending.
	ListCourseWork(ctx context.Context, courseID string, limit int) ([]model.CourseWork, error)
}
