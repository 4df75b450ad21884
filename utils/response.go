package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the uniform body of failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Success writes a 200 JSON response with the given payload.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}

// Error writes an error response; code is the application error code.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message, Code: code})
}
