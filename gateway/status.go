package gateway

import (
	"net/http"
	"roomchat/errors"
	"strings"
	"unicode"

	"google.golang.org/grpc/codes"
)

var httpStatuses = map[codes.Code]int{
	codes.OK:               http.StatusOK,
	codes.Unauthenticated:  http.StatusUnauthorized,
	codes.NotFound:         http.StatusNotFound,
	codes.PermissionDenied: http.StatusForbidden,
	codes.InvalidArgument:  http.StatusBadRequest,
	codes.AlreadyExists:    http.StatusConflict,
	codes.Unavailable:      http.StatusServiceUnavailable,
}

func httpStatus(err error) int {
	if status, ok := httpStatuses[errors.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// toErrorDTO hides the details of unclassified errors.
func toErrorDTO(inbound string, err error) ErrorDTO {
	code := errors.Code(err)
	message := err.Error()
	if code == codes.Internal {
		message = "internal error"
	}
	return ErrorDTO{Event: inbound, Code: codeName(code), Message: message}
}

// codeName turns "PermissionDenied" into "PERMISSION_DENIED".
func codeName(code codes.Code) string {
	var b strings.Builder
	for i, r := range code.String() {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
