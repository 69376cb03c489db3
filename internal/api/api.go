package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type ServerConfig struct {
	Service string
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewServer builds an echo instance with the middleware and operational
// routes shared by every binary. Callers add their own routes.
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig(cfg.RateLimit, cfg.RateBurst)))
	}
	e.Use(metrics.Middleware(cfg.Service))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": cfg.Service,
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", metrics.Handler())
	return e
}

// Serve runs e on addr until ctx is done, then gives in-flight requests
// ten seconds to finish.
func Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func rateLimiterConfig(limit float64, burst int) middleware.RateLimiterConfig {
	tooMany := func(c echo.Context) error {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "RATE_LIMITED", "message": "rate limit exceeded"})
	}
	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return tooMany(c)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return tooMany(c)
		},
	}
}

func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindBadRequest:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError renders err as {"error": code, "message": message}. Errors
// that are not business errors never leak their text.
func respondError(c echo.Context, err error) error {
	appErr, ok := apperror.As(err)
	if !ok {
		logger.Error().Err(err).Msgf("Unhandled error on %s %s", c.Request().Method, c.Path())
		appErr = apperror.Internal(err)
	}
	return c.JSON(statusOf(appErr.Kind), map[string]string{"error": appErr.Code, "message": appErr.Message})
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		if jsonErr := c.JSON(he.Code, map[string]string{"error": code, "message": message}); jsonErr != nil {
			logger.Error().Err(jsonErr).Msg("Error writing error response")
		}
		return
	}
	if jsonErr := respondError(c, err); jsonErr != nil {
		logger.Error().Err(jsonErr).Msg("Error writing error response")
	}
}

// RequestValidator plugs go-playground/validator into echo.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.ErrInvalidInput.WithMessagef("%v", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// drop the request type from "createOrderRequest.shippingAddress.city"
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		problems = append(problems, fmt.Sprintf("%s must satisfy %s", field, fe.Tag()))
	}
	return apperror.ErrInvalidInput.WithMessagef("%s", strings.Join(problems, "; "))
}

// bind decodes the request into req and validates it.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.ErrInvalidInput.WithMessagef("invalid request payload")
	}
	return c.Validate(req)
}
