package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/msys2-relay/internal/middleware"
	"github.com/deppfellow/msys2-relay/internal/server"
	"github.com/deppfellow/msys2-relay/internal/service"
	"github.com/deppfellow/msys2-relay/internal/validation"
)

// Handler is the base handler type that holds shared application dependencies.
//
// Concrete handlers (PackageHandler, HealthHandler, ...) embed it to reach
// config, logger, metrics and the upstream client via *server.Server.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// --- Generic typed handler plumbing -----------------------------------------

// Request is satisfied by *R when R is a request struct with a Validate
// method on its pointer. Handle allocates a fresh R for every call.
type Request[R any] interface {
	*R
	validation.Validatable
}

// HandlerFunc represents a typed endpoint function that receives a bound,
// validated request and returns a response or an error.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// ResponseHandler defines how a successful result is written and which
// tracing attributes it contributes.
type ResponseHandler interface {
	// Handle writes the HTTP response for the given result.
	Handle(c echo.Context, result interface{}) error

	// GetOperation returns an operation name used for structured logging.
	GetOperation() string

	// AddAttributes attaches New Relic attributes based on the result.
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// JSONResponseHandler writes JSON responses with a given status code.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	// http.status_code is already set by tracing middleware (EnhanceTracing).
}

// RelayResponseHandler writes a relayed upstream file byte for byte.
//
// It expects the handler result to be a *service.PackageFile. The upstream
// Content-Type is copied when present; when upstream sent none, the response
// carries none either (net/http would otherwise sniff one).
type RelayResponseHandler struct {
	status int
}

func (h RelayResponseHandler) Handle(c echo.Context, result interface{}) error {
	file := result.(*service.PackageFile)

	header := c.Response().Header()
	if file.HasContentType {
		header.Set(echo.HeaderContentType, file.ContentType)
	} else {
		header[echo.HeaderContentType] = nil
	}

	c.Response().WriteHeader(h.status)
	if c.Request().Method == http.MethodHead {
		return nil
	}

	_, err := c.Response().Write(file.Body)
	return err
}

func (h RelayResponseHandler) GetOperation() string {
	return "handler_relay"
}

func (h RelayResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn == nil {
		return
	}
	if file, ok := result.(*service.PackageFile); ok {
		txn.AddAttribute("relay.size_bytes", len(file.Body))
		if file.HasContentType {
			txn.AddAttribute("relay.content_type", file.ContentType)
		}
	}
}

// handleRequest is the shared execution pipeline for all typed handlers.
//
// It centralizes binding and validation, request-scoped logging, New Relic
// attributes and error notices, phase timings, and response writing.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	handler func(c echo.Context, req Req) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	route := c.Path()

	// Set by the nrecho middleware when New Relic is enabled.
	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
		responseHandler.AddAttributes(txn, nil)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("route", route).
		Logger()

	logger.Debug().Msg("handling request")

	// ---------------- Validation phase ---------------------------------------
	validationStart := time.Now()

	if err := validation.BindAndValidate(c, req); err != nil {
		validationDuration := time.Since(validationStart)

		logger.Warn().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		if txn != nil {
			txn.AddAttribute("validation.status", "failed")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}

		// The global error handler formats the response.
		return err
	}

	validationDuration := time.Since(validationStart)
	if txn != nil {
		txn.AddAttribute("validation.status", "success")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
	}

	// ---------------- Handler execution phase --------------------------------
	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		totalDuration := time.Since(start)

		logger.Warn().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", totalDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		}
		return err
	}

	totalDuration := time.Since(start)

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Debug().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", totalDuration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// Handle wraps a typed JSON handler with validation, error handling,
// logging and tracing. The request type is named explicitly:
//
//	r.GET("/x", handler.Handle[MyRequest](h, h.DoX, http.StatusOK))
func Handle[R any, Req Request[R], Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, Req(new(R)), func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, JSONResponseHandler{status: status})
	}
}

// HandleRelay wraps a handler that returns an upstream file and writes it
// through RelayResponseHandler.
func HandleRelay[R any, Req Request[R]](
	h Handler,
	handler HandlerFunc[Req, *service.PackageFile],
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, Req(new(R)), func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, RelayResponseHandler{status: status})
	}
}
