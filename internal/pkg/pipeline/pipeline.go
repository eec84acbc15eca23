// Package pipeline wraps use-case calls in an ordered chain of stages:
// tracing, logging, metrics, validation, audit and caching.
package pipeline

import "context"

// Handler is one use case.
type Handler[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Middleware decorates a handler.
type Middleware[Req, Res any] func(next Handler[Req, Res]) Handler[Req, Res]

// Chain wraps h so that mws[0] runs outermost.
func Chain[Req, Res any](h Handler[Req, Res], mws ...Middleware[Req, Res]) Handler[Req, Res] {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Stages holds the shared collaborators of the standard stages. Nil members
// disable the stages that need them.
type Stages struct {
	Metrics *Metrics
}

// Standard returns tracing, logging, metrics and validation for name, in
// that order.
func Standard[Req, Res any](name string, s Stages) []Middleware[Req, Res] {
	return []Middleware[Req, Res]{
		Tracing[Req, Res](name),
		Logging[Req, Res](name),
		WithMetrics[Req, Res](s.Metrics, name),
		Validation[Req, Res](),
	}
}
