package handler

import (
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// GetHeader looks up a request header case-insensitively.
func GetHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// TextResponse builds a plain-text response.
func TextResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// StatusResponse builds a response whose body is just the status text.
func StatusResponse(status int) events.APIGatewayProxyResponse {
	return TextResponse(status, http.StatusText(status))
}
