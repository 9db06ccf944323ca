package http

import (
	"net/http"

	"github.com/buildbarn/bb-fleet/pkg/auth"

	"google.golang.org/grpc/status"
)

type authenticatingHandler struct {
	handler       http.Handler
	authenticator Authenticator
}

// NewAuthenticatingHandler wraps a http.Handler in such a way that all
// requests are processed by an Authenticator. Upon success, the request
// is forwarded to the http.Handler. Upon failure, an error message is
// returned to the client.
func NewAuthenticatingHandler(handler http.Handler, authenticator Authenticator) http.Handler {
	return &authenticatingHandler{
		handler:       handler,
		authenticator: authenticator,
	}
}

func (h *authenticatingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metadata, err := h.authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, status.Convert(err).Message(), StatusCodeFromGRPCCode(status.Code(err)))
		return
	}
	ctx := r.Context()
	if metadata != nil {
		ctx = auth.NewContextWithAuthenticationMetadata(ctx, metadata)
	}
	h.handler.ServeHTTP(w, r.WithContext(ctx))
}
