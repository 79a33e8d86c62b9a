package adapter

import (
	"context"
)

// ClassroomProvider defines how to get a Classroom acting as a specific student.
type ClassroomProvider interface {
	// GetClassroom returns a Classroom authenticated as the given student email.
	GetClassroom(ctx context.Context, email string) (Classroom, error)
}
