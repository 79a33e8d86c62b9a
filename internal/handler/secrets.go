package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/homeworklink/internal/model"
)

// SecretsHandler serves one-time provisioning material.
type SecretsHandler struct {
	generate func() (model.SecretMaterial, error)
	logger   *slog.Logger
}

// NewSecretsHandler creates a new SecretsHandler.
func NewSecretsHandler(generate func() (model.SecretMaterial, error), logger *slog.Logger) *SecretsHandler {
	return &SecretsHandler{generate: generate, logger: logger}
}

// Generate returns a fresh path secret, key and IV, one "NAME: value" per line.
func (h *SecretsHandler) Generate(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	m, err := h.generate()
	if err != nil {
		h.logger.ErrorContext(ctx, "generating secret material failed", "error", err)
		return StatusResponse(http.StatusInternalServerError), nil
	}

	body := fmt.Sprintf("PATH_SECRET: %s\nENCRYPTION_KEY: %s\nENCRYPTION_IV: %s", m.PathSecret, m.EncryptionKey, m.EncryptionIV)
	return TextResponse(http.StatusOK, body), nil
}
