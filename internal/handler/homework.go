package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/homework"
	"github.com/jun/homeworklink/internal/identity"
)

// FailedCoursesHeader reports how many courses were omitted from a response.
const FailedCoursesHeader = "X-Homework-Failed-Courses"

// Decoder turns a token back into an identity.
type Decoder interface {
	Decode(token string) (string, error)
}

// Fetcher aggregates homework for a student email.
type Fetcher interface {
	Fetch(ctx context.Context, email string) (*homework.Result, error)
}

// HomeworkHandler serves a student's homework for an opaque token.
type HomeworkHandler struct {
	codec   Decoder
	fetcher Fetcher
	domain  string
	logger  *slog.Logger
}

// NewHomeworkHandler creates a new HomeworkHandler. domain is appended to
// identities to form the student's email.
func NewHomeworkHandler(codec Decoder, fetcher Fetcher, domain string, logger *slog.Logger) *HomeworkHandler {
	return &HomeworkHandler{codec: codec, fetcher: fetcher, domain: domain, logger: logger}
}

// GetHomework resolves the "token" path parameter and returns the homework as JSON.
// Undecodable tokens and tokens that decode to a malformed identity are both 404.
func (h *HomeworkHandler) GetHomework(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := h.codec.Decode(req.PathParameters["token"])
	if err != nil || identity.Validate(id) != nil {
		return StatusResponse(http.StatusNotFound), nil
	}

	result, err := h.fetcher.Fetch(ctx, identity.Email(id, h.domain))
	if err != nil {
		kind := "upstream"
		if errors.Is(err, adapter.ErrAuthFailure) {
			kind = "auth"
		}
		h.logger.ErrorContext(ctx, "homework fetch failed", "kind", kind, "error", err)
		return StatusResponse(http.StatusBadGateway), nil
	}

	body, err := json.Marshal(result.Homework)
	if err != nil {
		h.logger.ErrorContext(ctx, "encoding homework failed", "error", err)
		return StatusResponse(http.StatusInternalServerError), nil
	}

	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
	if result.FailedCourses > 0 {
		resp.Headers[FailedCoursesHeader] = strconv.Itoa(result.FailedCourses)
	}
	return resp, nil
}
