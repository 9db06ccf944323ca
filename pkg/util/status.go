package util

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusWrap prepends a string to the message of an existing error.
func StatusWrap(err error, msg string) error {
	p := status.Convert(err).Proto()
	p.Message = fmt.Sprintf("%s: %s", msg, p.Message)
	return status.ErrorProto(p)
}

// StatusWrapf prepends a formatted string to the message of an existing error.
func StatusWrapf(err error, format string, args ...interface{}) error {
	return StatusWrap(err, fmt.Sprintf(format, args...))
}

// StatusWrapWithCode prepends a string to the message of an existing
// error, while replacing the error code.
func StatusWrapWithCode(err error, code codes.Code, msg string) error {
	p := status.Convert(err).Proto()
	p.Code = int32(code)
	p.Message = fmt.Sprintf("%s: %s", msg, p.Message)
	return status.ErrorProto(p)
}

// StatusWrapfWithCode prepends a formatted string to the message of an
// existing error, while replacing the error code.
func StatusWrapfWithCode(err error, code codes.Code, format string, args ...interface{}) error {
	return StatusWrapWithCode(err, code, fmt.Sprintf(format, args...))
}

// StatusFromContext converts the error associated with a context to a
// gRPC Status error. This function ensures that errors such as
// context.DeadlineExceeded are properly converted to
// codes.DeadlineExceeded.
func StatusFromContext(ctx context.Context) error {
	return status.FromContextError(ctx.Err()).Err()
}

// StatusFromMultiple creates a single error from a list of errors. The
// code of the first error is retained, while all of the messages are
// joined together.
func StatusFromMultiple(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, status.Convert(err).Message())
	}
	return status.Error(status.Code(errs[0]), strings.Join(messages, ", "))
}
