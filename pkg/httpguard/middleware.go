package httpguard

import (
	"errors"
	"net/http"
)

// Middleware is the composable handler-wrapping shape used across the
// service.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares right-to-left so the first listed runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Require returns middleware that runs the guard pipeline with the given
// route options and injects the resulting principal into the request
// context. Rejections are written as typed JSON errors.
func (g *Guard) Require(opts RouteOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := g.Authenticate(r, opts)
			if err != nil {
				writeRejection(w, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRejection(w http.ResponseWriter, err error) {
	var rej *Rejection
	if errors.As(err, &rej) {
		rej.WriteError(w)
		return
	}

	(&Rejection{
		StatusCode: http.StatusInternalServerError,
		Code:       "server_error",
		Message:    "authentication failed unexpectedly",
	}).WriteError(w)
}
