package middleware

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/sirupsen/logrus"
)

// ValidationMiddleware validates incoming requests against the service's
// OpenAPI document before they reach a handler.
type ValidationMiddleware struct {
	router  routers.Router
	logger  *logrus.Logger
	enabled bool
}

// NewValidationMiddleware loads specPath and builds the request router.
// With enabled=false the middleware passes everything through.
func NewValidationMiddleware(specPath string, enabled bool, logger *logrus.Logger) (*ValidationMiddleware, error) {
	vm := &ValidationMiddleware{logger: logger, enabled: enabled}
	if !enabled {
		logger.Info("OpenAPI request validation disabled")
		return vm, nil
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec %s: %w", specPath, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}
	vm.router = router

	logger.WithField("spec_path", specPath).Info("OpenAPI request validation enabled")
	return vm, nil
}

// Handler wraps next with request validation. Requests for paths outside
// the OpenAPI document (docs, health) pass through untouched.
func (vm *ValidationMiddleware) Handler(next http.Handler) http.Handler {
	if !vm.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := vm.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				// Authentication is enforced by the security middleware,
				// not by the schema check.
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			vm.logger.WithError(err).WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Warn("Request failed OpenAPI validation")
			http.Error(w, fmt.Sprintf(`{"error":{"message":%q,"code":400}}`, err.Error()), http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}
