package domain

import (
	"context"
	"net/http"
	"net/url"
)

// StepFunc is the unit of work a contributor registers. It returns exactly one
// signal. Long-running work should observe cc.Context() for cancellation.
type StepFunc func(cc *CommunicationContext) (Continuation, error)

// Request is the inbound side of a communication.
type Request struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	Query      url.Values  `json:"query,omitempty"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
	RemoteAddr string      `json:"remote_addr,omitempty"`
}

// Response is the outbound side of a communication.
type Response struct {
	StatusCode int         `json:"status_code,omitempty"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
}

// SetStatus records the status code to send.
func (r *Response) SetStatus(code int) {
	r.StatusCode = code
}

// Write appends p to the body.
func (r *Response) Write(p []byte) (int, error) {
	r.Body = append(r.Body, p...)
	return len(p), nil
}

// OperationResult is what an operation produced, waiting to be rendered.
type OperationResult struct {
	StatusCode int    `json:"status_code"`
	Entity     any    `json:"entity,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PipelineData is the scratch space contributors share during a run.
type PipelineData struct {
	// ResourceKey identifies the resource matched for the request, if any.
	ResourceKey string            `json:"resource_key,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Result      *OperationResult  `json:"result,omitempty"`

	// Items is free-form. Values must be JSON-serializable for a run to be parked.
	Items map[string]any `json:"items,omitempty"`
}

// Handled reports whether some contributor took ownership of the request.
func (d *PipelineData) Handled() bool {
	return d.ResourceKey != "" || d.Result != nil
}

// CommunicationContext carries one request through the pipeline.
// It must not be shared between requests; reuse requires Reset.
type CommunicationContext struct {
	ID       string
	Request  *Request
	Response *Response
	Data     *PipelineData
	Run      *RunState

	ctx context.Context
}

// NewCommunicationContext creates a context for a single request.
func NewCommunicationContext(ctx context.Context, id string, req *Request) *CommunicationContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		req = &Request{}
	}
	return &CommunicationContext{
		ID:       id,
		Request:  req,
		Response: &Response{Header: make(http.Header)},
		Data:     &PipelineData{Items: make(map[string]any)},
		Run:      NewRunState(),
		ctx:      ctx,
	}
}

// Context returns the cancellation context of the request.
func (c *CommunicationContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// SetContext replaces the cancellation context, e.g. when a parked run is
// resumed by a new request.
func (c *CommunicationContext) SetContext(ctx context.Context) {
	c.ctx = ctx
}

// Reset prepares the context for another request: response, pipeline data
// and run state are cleared.
func (c *CommunicationContext) Reset() {
	c.Response = &Response{Header: make(http.Header)}
	c.Data = &PipelineData{Items: make(map[string]any)}
	if c.Run == nil {
		c.Run = NewRunState()
	} else {
		c.Run.Reset()
	}
}
