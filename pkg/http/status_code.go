package http

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// HTTP status codes corresponding to gRPC status codes, as documented
// in https://github.com/googleapis/googleapis/blob/master/google/rpc/code.proto.
var grpcCodeToStatusCode = map[codes.Code]int{
	codes.OK:                 http.StatusOK,
	codes.Canceled:           499,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Aborted:            http.StatusConflict,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Unavailable:        http.StatusServiceUnavailable,
}

// StatusCodeFromGRPCCode returns the HTTP status code that corresponds
// to a gRPC status code.
func StatusCodeFromGRPCCode(code codes.Code) int {
	if statusCode, ok := grpcCodeToStatusCode[code]; ok {
		return statusCode
	}
	return http.StatusInternalServerError
}

// GRPCCodeFromStatusCode returns the gRPC status code that corresponds
// to an HTTP status code. This is used when a response carries no
// gRPC status in its body, as is the case for responses generated by
// proxies and load balancers.
func GRPCCodeFromStatusCode(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusOK:
		return codes.OK
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.Aborted
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	case 499:
		return codes.Canceled
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		if statusCode >= 500 {
			return codes.Internal
		}
		return codes.Unknown
	}
}
