package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chatdesk/services"
	"github.com/cppla/chatdesk/utils"
)

// respondError maps a service error onto the HTTP status and app code.
// internalCode is used when the error is not a classified service error.
func respondError(ctx *gin.Context, err error, internalCode int) {
	switch services.KindOf(err) {
	case services.KindInput:
		utils.Error(ctx, http.StatusBadRequest, 40010, clientMessage(err))
	case services.KindValidation:
		utils.Error(ctx, http.StatusBadRequest, 40030, clientMessage(err))
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40401, clientMessage(err))
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, internalCode, err.Error())
	}
}

func clientMessage(err error) string {
	if se, ok := err.(*services.Error); ok {
		return se.Msg
	}
	return err.Error()
}

func invalidJSON(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40001, "Invalid JSON")
}
