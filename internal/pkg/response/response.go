package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError carries an errcode through proxyutil, which reads Code() to fill
// the envelope.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Code() uint32 { return e.code }

// Success writes data inside the {code:0, msg, data} envelope with 200.
func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope. status is the real HTTP status so
// clients and proxies can branch on it; code is the errcode value clients
// match on inside the body.
func Error(c *gin.Context, status int, code int, message string) {
	proxyutil.FailJson(c, status, &apiError{code: uint32(code), msg: message})
}
