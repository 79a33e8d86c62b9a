package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/homeworklink/internal/identity"
)

// Encoder turns an identity into a token.
type Encoder interface {
	Encode(identity string) string
}

// EncryptHandler issues tokens for identities. The router only reaches it
// once the path secret has matched.
type EncryptHandler struct {
	codec Encoder
}

// NewEncryptHandler creates a new EncryptHandler.
func NewEncryptHandler(codec Encoder) *EncryptHandler {
	return &EncryptHandler{codec: codec}
}

// Encrypt returns the token for the "identity" path parameter as plain text.
func (h *EncryptHandler) Encrypt(_ context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters["identity"]
	if err := identity.Validate(id); err != nil {
		return StatusResponse(http.StatusBadRequest), nil
	}
	return TextResponse(http.StatusOK, h.codec.Encode(id)), nil
}
