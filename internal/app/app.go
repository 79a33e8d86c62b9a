package app

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/google/uuid"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/adapter/googleclassroom"
	"github.com/jun/homeworklink/internal/adapter/memory"
	"github.com/jun/homeworklink/internal/auth"
	"github.com/jun/homeworklink/internal/config"
	"github.com/jun/homeworklink/internal/crypto"
	"github.com/jun/homeworklink/internal/handler"
	"github.com/jun/homeworklink/internal/homework"
	"github.com/jun/homeworklink/internal/identity"
	"github.com/jun/homeworklink/internal/secret"
)

// DemoIdentity is the student seeded into the in-memory classroom in DEV_MODE.
const DemoIdentity = "demo.student"

const (
	allowedMethods  = "GET,OPTIONS"
	preflightMaxAge = "86400"
)

// App holds the dependencies for the Lambda function.
// A nil cfg means configuration failed to load and only the bootstrap route is served.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	secretsHandler  *handler.SecretsHandler
	encryptHandler  *handler.EncryptHandler
	homeworkHandler *handler.HomeworkHandler
}

// NewApp initializes the application dependencies from the environment.
// It never fails: when configuration cannot be loaded the returned App only
// serves GET /generatesecrets.
func NewApp(ctx context.Context, logger *slog.Logger) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	// ---------- Secret Resolver / Decrypter ----------
	var resolver secret.Resolver
	decrypter := crypto.Decrypter(crypto.NewPlainDecrypter())
	if devMode {
		resolver = secret.NewEnvResolver()
		logger.Info("using environment secrets", "dev_mode", true)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("unable to load AWS SDK config; serving bootstrap route only", "error", err)
			return NewBootstrapApp(logger)
		}
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
		if keyID := os.Getenv("KMS_KEY_ID"); keyID != "" {
			decrypter = crypto.NewKMSDecrypter(kms.NewFromConfig(awsCfg), keyID)
			logger.Info("unwrapping key material with KMS")
		}
	}

	cfg, err := config.Load(ctx, resolver, decrypter)
	if err != nil {
		logger.Error("configuration unavailable; serving bootstrap route only", "error", err)
		return NewBootstrapApp(logger)
	}

	// ---------- Classroom Provider ----------
	var provider adapter.ClassroomProvider
	if cfg.DevMode {
		mem := memory.NewProvider()
		memory.SeedDemo(mem, identity.Email(DemoIdentity, cfg.StudentEmailDomain), time.Now().In(cfg.Location))
		provider = mem
		logger.Info("using in-memory classroom", "demo_identity", DemoIdentity)
	} else {
		httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
		sa := auth.NewServiceAccount(cfg.ServiceAccountEmail, cfg.ServiceAccountKey, cfg.TokenURL, httpClient)
		provider = googleclassroom.NewProvider(sa, cfg.ClassroomEndpoint)
	}

	app, err := New(cfg, provider, logger)
	if err != nil {
		logger.Error("unable to build handlers; serving bootstrap route only", "error", err)
		return NewBootstrapApp(logger)
	}
	return app
}

// New builds a fully configured App around provider.
func New(cfg *config.Config, provider adapter.ClassroomProvider, logger *slog.Logger) (*App, error) {
	codec, err := crypto.NewCodec(cfg.EncryptionKey, cfg.EncryptionIV)
	if err != nil {
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	aggregator := homework.NewAggregator(provider, homework.Config{
		CourseSuffix: cfg.CourseSuffix,
		Location:     cfg.Location,
		Timeout:      cfg.UpstreamTimeout,
		Logger:       logger,
	})

	app := NewBootstrapApp(logger)
	app.cfg = cfg
	app.encryptHandler = handler.NewEncryptHandler(codec)
	app.homeworkHandler = handler.NewHomeworkHandler(codec, aggregator, cfg.StudentEmailDomain, logger)
	return app, nil
}

// NewBootstrapApp returns an App that serves only GET /generatesecrets and
// answers everything else with 503.
func NewBootstrapApp(logger *slog.Logger) *App {
	return &App{
		logger:         logger,
		secretsHandler: handler.NewSecretsHandler(crypto.GenerateSecretMaterial, logger),
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := app.logger.With("request_id", requestID)

	start := time.Now()
	resp := app.route(ctx, req)
	logger.InfoContext(ctx, "request",
		"method", req.HTTPMethod,
		"path", redactPath(req.Path),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (app *App) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := req.Path
	method := req.HTTPMethod

	// Bootstrap route: no CORS, no configuration needed.
	if method == http.MethodGet && path == "/generatesecrets" {
		return app.must(app.secretsHandler.Generate(ctx, req))
	}

	if app.cfg == nil {
		return handler.StatusResponse(http.StatusServiceUnavailable)
	}

	if method == http.MethodOptions {
		return app.preflight(req)
	}
	if method != http.MethodGet {
		return app.corsResponse(handler.StatusResponse(http.StatusMethodNotAllowed))
	}

	// /encrypt/{pathSecret}/{identity}
	if rest, ok := strings.CutPrefix(path, "/encrypt/"); ok {
		pathSecret, plaintext, found := strings.Cut(rest, "/")
		if found && subtle.ConstantTimeCompare([]byte(pathSecret), []byte(app.cfg.PathSecret)) == 1 {
			req.PathParameters = map[string]string{"identity": plaintext}
			return app.corsResponse(app.must(app.encryptHandler.Encrypt(ctx, req)))
		}
		return app.corsResponse(handler.StatusResponse(http.StatusNotFound))
	}

	// /homework/{token}
	if token, ok := strings.CutPrefix(path, "/homework/"); ok {
		req.PathParameters = map[string]string{"token": token}
		resp := app.must(app.homeworkHandler.GetHomework(ctx, req))
		if _, ok := resp.Headers[handler.FailedCoursesHeader]; ok {
			resp.Headers["Access-Control-Expose-Headers"] = handler.FailedCoursesHeader
		}
		return app.corsResponse(resp)
	}

	return app.corsResponse(handler.StatusResponse(http.StatusNotFound))
}

// preflight answers OPTIONS. Requests that are not CORS preflights get only an Allow header.
func (app *App) preflight(req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	requestHeaders := handler.GetHeader(req, "Access-Control-Request-Headers")
	if handler.GetHeader(req, "Origin") == "" ||
		handler.GetHeader(req, "Access-Control-Request-Method") == "" ||
		requestHeaders == "" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{"Allow": "GET, OPTIONS"},
		}
	}

	resp := app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusOK})
	resp.Headers["Access-Control-Allow-Headers"] = requestHeaders
	return resp
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.cfg.ClientOrigin
	resp.Headers["Access-Control-Allow-Methods"] = allowedMethods
	resp.Headers["Access-Control-Max-Age"] = preflightMaxAge
	return resp
}

// must unwraps a handler response, mapping an unexpected error to a bare 500.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error("handler error", "error", err)
		return handler.StatusResponse(http.StatusInternalServerError)
	}
	return resp
}

// redactPath keeps the route but hides path secrets, identities and tokens.
func redactPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/encrypt/"):
		return "/encrypt/[redacted]"
	case strings.HasPrefix(path, "/homework/"):
		return "/homework/[redacted]"
	default:
		return path
	}
}
