package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taoxee/scribeflow/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the failure envelope wrapping the error taxonomy.
type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

// respondError derives the status and structured body from an AppError;
// anything else becomes a generic 500.
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorResponse{Error: appErr})
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

func respondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}
