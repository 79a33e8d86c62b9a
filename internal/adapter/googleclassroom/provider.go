package googleclassroom

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jun/homeworklink/internal/adapter"
)

// ClientSource returns an http.Client authenticated as a student.
type ClientSource interface {
	GetClient(ctx context.Context, subject string) (*http.Client, error)
}

// Provider implements adapter.ClassroomProvider for Google Classroom.
type Provider struct {
	clients  ClientSource
	endpoint string
}

// NewProvider creates a new Google Classroom provider.
func NewProvider(clients ClientSource, endpoint string) *Provider {
	return &Provider{clients: clients, endpoint: endpoint}
}

// GetClassroom returns a ClassroomAdapter impersonating the given student email.
func (p *Provider) GetClassroom(ctx context.Context, email string) (adapter.Classroom, error) {
	client, err := p.clients.GetClient(ctx, email)
	if err != nil {
		return nil, err
	}

	c, err := NewClassroomAdapter(ctx, client, p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create classroom adapter: %v", adapter.ErrUpstreamFailure, err)
	}

	return c, nil
}
