package http

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind common.Kind) int {
	switch kind {
	case common.KindDuplicateEmail, common.KindEmailConflict:
		return http.StatusConflict
	case common.KindInvalidCredentials, common.KindTokenMalformed, common.KindTokenExpired, common.KindTokenInvalid:
		return http.StatusUnauthorized
	case common.KindAccountInactive:
		return http.StatusForbidden
	case common.KindUserNotFound:
		return http.StatusNotFound
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := common.KindOf(err)
	code := statusFor(kind)

	msg := kind.String()
	switch {
	case kind == common.KindValidation:
		msg = common.Detail(err)
	case code == http.StatusInternalServerError:
		msg = "internal error"
	}

	c.AbortWithStatusJSON(code, ErrorResponse{
		Message: msg,
		Code:    strings.ReplaceAll(kind.String(), " ", "_"),
	})
}

func respondMessage(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Message: msg})
}
