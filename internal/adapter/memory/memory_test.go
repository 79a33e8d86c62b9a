package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/model"
)

const testEmail = "jdoe@school.example"

func date(y, m, d int) *model.DueDate {
	return &model.DueDate{Year: y, Month: m, Day: d}
}

func TestMemoryClassroom_ListActiveCourses(t *testing.T) {
	p := NewProvider()
	p.AddCourse(testEmail, model.Course{ID: "c1", Name: "10Ma1"})
	p.AddCourse(testEmail, model.Course{ID: "c2", Name: "10En2"})
	ctx := context.Background()

	c, _ := p.GetClassroom(ctx, testEmail)
	courses, err := c.ListActiveCourses(ctx)
	if err != nil {
		t.Fatalf("ListActiveCourses failed: %v", err)
	}
	if len(courses) != 2 || courses[0].ID != "c1" || courses[1].ID != "c2" {
		t.Errorf("Unexpected courses: %+v", courses)
	}
}

func TestMemoryClassroom_UnknownStudent(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	c, _ := p.GetClassroom(ctx, "nobody@school.example")
	courses, err := c.ListActiveCourses(ctx)
	if err != nil {
		t.Fatalf("ListActiveCourses failed: %v", err)
	}
	if len(courses) != 0 {
		t.Errorf("Expected no courses, got %d", len(courses))
	}
}

func TestMemoryClassroom_ListCourseWork_OrderAndLimit(t *testing.T) {
	p := NewProvider()
	p.AddCourse(testEmail, model.Course{ID: "c1", Name: "10Ma1"},
		model.CourseWork{Title: "old", DueDate: date(2026, 1, 1)},
		model.CourseWork{Title: "undated"},
		model.CourseWork{Title: "newest", DueDate: date(2026, 3, 1)},
		model.CourseWork{Title: "middle", DueDate: date(2026, 2, 1)},
	)
	ctx := context.Background()
	c, _ := p.GetClassroom(ctx, testEmail)

	items, err := c.ListCourseWork(ctx, "c1", 25)
	if err != nil {
		t.Fatalf("ListCourseWork failed: %v", err)
	}
	want := []string{"newest", "middle", "old", "undated"}
	if len(items) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		if items[i].Title != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Title, w)
		}
	}

	limited, _ := c.ListCourseWork(ctx, "c1", 2)
	if len(limited) != 2 || limited[0].Title != "newest" {
		t.Errorf("Unexpected limited items: %+v", limited)
	}
}

func TestMemoryClassroom_ListCourseWork_Failures(t *testing.T) {
	p := NewProvider()
	p.AddCourse(testEmail, model.Course{ID: "c1", Name: "10Ma1"})
	p.FailCourse("c1", errors.New("boom"))
	ctx := context.Background()
	c, _ := p.GetClassroom(ctx, testEmail)

	if _, err := c.ListCourseWork(ctx, "c1", 25); !errors.Is(err, adapter.ErrUpstreamFailure) {
		t.Errorf("Expected ErrUpstreamFailure for failing course, got %v", err)
	}
	if _, err := c.ListCourseWork(ctx, "missing", 25); !errors.Is(err, adapter.ErrUpstreamFailure) {
		t.Errorf("Expected ErrUpstreamFailure for unknown course, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	p2 := NewProvider()
	p2.AddCourse(testEmail, model.Course{ID: "c1", Name: "10Ma1"})
	c2, _ := p2.GetClassroom(ctx, testEmail)
	if _, err := c2.ListCourseWork(cancelled, "c1", 25); !errors.Is(err, adapter.ErrUpstreamFailure) {
		t.Errorf("Expected ErrUpstreamFailure for cancelled context, got %v", err)
	}
}

func TestSeedDemo(t *testing.T) {
	p := NewProvider()
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	SeedDemo(p, testEmail, today)
	ctx := context.Background()
	c, _ := p.GetClassroom(ctx, testEmail)

	courses, _ := c.ListActiveCourses(ctx)
	if len(courses) != 3 {
		t.Fatalf("Expected 3 demo courses, got %d", len(courses))
	}
	items, _ := c.ListCourseWork(ctx, "demo-maths", 25)
	if len(items) != 2 || !items[0].DueDate.Complete() {
		t.Fatalf("Unexpected demo maths items: %+v", items)
	}
	if got := items[0].DueDate.In(time.UTC); !got.Equal(today.AddDate(0, 0, 1)) {
		t.Errorf("Expected first item due tomorrow, got %v", got)
	}
}
