package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   ErrorKind   `json:"error,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Error:   KindFromStatus(code),
	})
}

// RespondAppError writes err with the status that matches its kind. Untyped
// errors are logged and hidden behind a generic message.
func RespondAppError(c *gin.Context, err error) {
	kind := KindOf(err)
	code := HTTPStatus(kind)
	message := err.Error()
	if kind == KindInternal {
		ErrorLogger.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
		message = http.StatusText(code)
	}
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: message,
		Error:   kind,
	})
}
