package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spf13/pflag"

	"github.com/jun/homeworklink/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr string
	var dev bool

	flagSet := pflag.NewFlagSet("homeworklink-server", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", ":8080", "listen address")
	flagSet.BoolVar(&dev, "dev", false, "serve the in-memory demo classroom (sets DEV_MODE=true)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if dev {
		os.Setenv("DEV_MODE", "true")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	application := app.NewApp(context.Background(), logger)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = v[0]
		}

		queryParams := make(map[string]string)
		for k, v := range r.URL.Query() {
			queryParams[k] = v[0]
		}

		req := events.APIGatewayProxyRequest{
			Path:                  r.URL.Path,
			HTTPMethod:            r.Method,
			Headers:               headers,
			QueryStringParameters: queryParams,
			Body:                  string(body),
			IsBase64Encoded:       false,
		}

		resp, err := application.HandleRequest(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})

	logger.Info("starting local server", "addr", addr, "dev_mode", os.Getenv("DEV_MODE") == "true")
	return http.ListenAndServe(addr, nil)
}
