package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the single error envelope shared by every endpoint.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type MessageBody struct {
	Message string `json:"message"`
}

const SuccessMessage = "Success!"

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func OK(c *gin.Context) {
	Success(c, MessageBody{Message: SuccessMessage})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.JSON(status, ErrorBody{Code: code, Message: message})
}

func Abort(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Code: code, Message: message})
}
