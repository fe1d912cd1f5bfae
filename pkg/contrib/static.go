package contrib

import (
	"net/http"

	"github.com/aretw0/sluice/pkg/domain"
)

// StaticRoute answers a route with a fixed result.
type StaticRoute struct {
	Method  string `mapstructure:"method"`
	Pattern string `mapstructure:"pattern"`
	Status  int    `mapstructure:"status"`
	Body    any    `mapstructure:"body"`
	// Echo adds the matched params and the request method to the body.
	Echo bool `mapstructure:"echo"`
}

// StaticOptions configures NewStatic.
type StaticOptions struct {
	Routes []StaticRoute `mapstructure:"routes"`
}

// NewStatic builds a route table answering each route with its fixed body.
func NewStatic(opts StaticOptions) (*Resources, error) {
	res := NewResources()
	for _, route := range opts.Routes {
		route := route
		method := route.Method
		if method == "" {
			method = http.MethodGet
		}
		err := res.Handle(method, route.Pattern, func(cc *domain.CommunicationContext) (*domain.OperationResult, error) {
			status := route.Status
			if status == 0 {
				status = http.StatusOK
			}
			entity := route.Body
			if route.Echo {
				entity = map[string]any{
					"resource": cc.Data.ResourceKey,
					"method":   cc.Request.Method,
					"params":   cc.Data.Params,
					"body":     route.Body,
				}
			}
			return &domain.OperationResult{StatusCode: status, Entity: entity}, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
