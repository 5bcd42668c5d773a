// Package middleware provides the HTTP middleware stack and the request
// ID, recovery, logging, and CORS middleware used by modules.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware = func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first middleware
// added is the outermost.
type System interface {
	Use(mws ...Middleware)
	Apply(handler http.Handler) http.Handler
	Len() int
}

type stack struct {
	mws []Middleware
}

// New creates an empty middleware System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mws ...Middleware) {
	s.mws = append(s.mws, mws...)
}

func (s *stack) Len() int {
	return len(s.mws)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	return Chain(s.mws...)(handler)
}

// Chain composes mws into one middleware, outermost first.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
