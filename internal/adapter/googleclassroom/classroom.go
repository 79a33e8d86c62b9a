package googleclassroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/model"
	"google.golang.org/api/classroom/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	courseFields     = "courses(id,name)"
	courseWorkFields = "courseWork(title,dueDate,description)"
)

// ClassroomAdapter implements adapter.Classroom for Google Classroom.
type ClassroomAdapter struct {
	service *classroom.Service
}

// NewClassroomAdapter creates a new ClassroomAdapter.
// client should be an authenticated http.Client acting as the student.
// endpoint overrides the API base URL when non-empty.
func NewClassroomAdapter(ctx context.Context, client *http.Client, endpoint string) (*ClassroomAdapter, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	srv, err := classroom.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Classroom client: %v", err)
	}
	return &ClassroomAdapter{service: srv}, nil
}

// ListActiveCourses lists the active courses of the authenticated student.
func (c *ClassroomAdapter) ListActiveCourses(ctx context.Context) ([]model.Course, error) {
	r, err := c.service.Courses.List().
		StudentId("me").
		CourseStates("ACTIVE").
		PageSize(adapter.MaxCourses).
		Fields(googleapi.Field(courseFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list courses: %v", adapter.ErrUpstreamFailure, describe(err))
	}

	courses := make([]model.Course, 0, len(r.Courses))
	for _, co := range r.Courses {
		courses = append(courses, model.Course{ID: co.Id, Name: co.Name})
	}
	return courses, nil
}

// ListCourseWork lists the latest-due coursework of a course, newest due date first.
func (c *ClassroomAdapter) ListCourseWork(ctx context.Context, courseID string, limit int) ([]model.CourseWork, error) {
	r, err := c.service.Courses.CourseWork.List(courseID).
		OrderBy("dueDate desc").
		PageSize(int64(limit)).
		Fields(googleapi.Field(courseWorkFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list coursework for course %s: %v", adapter.ErrUpstreamFailure, courseID, describe(err))
	}

	items := make([]model.CourseWork, 0, len(r.CourseWork))
	for _, w := range r.CourseWork {
		item := model.CourseWork{
			Title:       w.Title,
			Description: w.Description,
		}
		if w.DueDate != nil {
			item.DueDate = &model.DueDate{
				Year:  int(w.DueDate.Year),
				Month: int(w.DueDate.Month),
				Day:   int(w.DueDate.Day),
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// describe reduces Google API errors to their status code so response
// bodies do not travel further than the log line.
func describe(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return fmt.Errorf("googleapi: status %d", gErr.Code)
	}
	return err
}
