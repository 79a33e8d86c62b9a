package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jun/homeworklink/internal/app"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	application := app.NewApp(context.Background(), logger)
	lambda.Start(application.HandleRequest)
}
