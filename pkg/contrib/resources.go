package contrib

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// HandlerFunc executes the operation for a matched resource.
type HandlerFunc func(cc *domain.CommunicationContext) (*domain.OperationResult, error)

// Resources is a route table. chi does the pattern matching; the matched
// pattern becomes the request's ResourceKey.
type Resources struct {
	mu       sync.RWMutex
	mux      *chi.Mux
	handlers map[string]map[string]HandlerFunc // pattern -> method -> handler
}

// NewResources returns an empty route table.
func NewResources() *Resources {
	return &Resources{
		mux:      chi.NewRouter(),
		handlers: make(map[string]map[string]HandlerFunc),
	}
}

// Handle adds a handler for method on pattern (chi syntax, e.g. /orders/{id}).
func (r *Resources) Handle(method, pattern string, fn HandlerFunc) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	method = strings.ToUpper(method)
	if _, ok := r.handlers[pattern]; !ok {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("invalid pattern %q: %v", pattern, p)
			}
		}()
		r.mux.Handle(pattern, http.NotFoundHandler())
		r.handlers[pattern] = make(map[string]HandlerFunc)
	}
	r.handlers[pattern][method] = fn
	return nil
}

// Initialize registers matching, selection and execution steps.
func (r *Resources) Initialize(b ports.Builder) {
	b.Use("resources.match", r.match).During(domain.StageURIMatching)
	b.Use("resources.select", r.selectHandler).During(domain.StageHandlerSelection)
	b.Use("resources.execute", r.execute).During(domain.StageOperationExecution)
}

func (r *Resources) match(cc *domain.CommunicationContext) (domain.Continuation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, cc.Request.Path) {
		return domain.ContinueSignal, nil
	}
	cc.Data.ResourceKey = rctx.RoutePattern()
	if len(rctx.URLParams.Keys) > 0 {
		cc.Data.Params = make(map[string]string, len(rctx.URLParams.Keys))
		for i, k := range rctx.URLParams.Keys {
			cc.Data.Params[k] = rctx.URLParams.Values[i]
		}
	}
	return domain.ContinueSignal, nil
}

func (r *Resources) lookup(cc *domain.CommunicationContext) (HandlerFunc, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := r.handlers[cc.Data.ResourceKey]
	if fn, ok := methods[strings.ToUpper(cc.Request.Method)]; ok {
		return fn, nil
	}
	allowed := make([]string, 0, len(methods))
	for m := range methods {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	return nil, allowed
}

func (r *Resources) selectHandler(cc *domain.CommunicationContext) (domain.Continuation, error) {
	if cc.Data.ResourceKey == "" || cc.Data.Result != nil {
		return domain.ContinueSignal, nil
	}
	if fn, allowed := r.lookup(cc); fn == nil {
		cc.Response.Header.Set("Allow", strings.Join(allowed, ", "))
		cc.Data.Result = &domain.OperationResult{
			StatusCode: http.StatusMethodNotAllowed,
			Reason:     "method not allowed",
		}
		return domain.RenderNow, nil
	}
	return domain.ContinueSignal, nil
}

func (r *Resources) execute(cc *domain.CommunicationContext) (domain.Continuation, error) {
	if cc.Data.ResourceKey == "" || cc.Data.Result != nil {
		return domain.ContinueSignal, nil
	}
	fn, _ := r.lookup(cc)
	if fn == nil {
		return domain.ContinueSignal, nil
	}
	result, err := fn(cc)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", cc.Request.Method, cc.Data.ResourceKey, err)
	}
	if result == nil {
		result = &domain.OperationResult{StatusCode: http.StatusNoContent}
	}
	cc.Data.Result = result
	return domain.ContinueSignal, nil
}
