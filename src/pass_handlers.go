package main

import (
	"errors"
	"log"
	"net/http"

	"frs/src/config"
	"frs/src/db"
	"frs/src/middlewares"
	"frs/src/types"
	"frs/src/utils"

	"github.com/gin-gonic/gin"
)

func passRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	passes := apiv1.Group("/passes")
	passes.Use(middlewares.AuthMiddleware)
	passes.
		GET("", listPassesHandler).
		GET("/:id", getPassHandler).
		POST("/decode", decodePassHandler)
	return apiv1
}

func listPassesHandler(ctx *gin.Context) {
	userId := ctx.GetUint("id")
	passes, err := db.GetStore().PassesByUserID(ctx, userId)
	if err != nil {
		log.Printf("Error retrieving passes for user %d: %s\n", userId, err.Error())
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": passes, "count": len(passes)})
}

func getPassHandler(ctx *gin.Context) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	userId := ctx.GetUint("id")
	pass, found, err := db.GetStore().PassByID(ctx, params.ID)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if !found || pass.UserID != userId {
		ctx.Status(http.StatusNotFound)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": pass})
}

func decodePassHandler(ctx *gin.Context) {
	var body types.DecodePassRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key, err := config.QRSecret()
	if err != nil {
		log.Printf("QR secret configuration error: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error"})
		return
	}
	var payload types.QRPayload
	if err := utils.DecryptPayload(key, body.QRCode, &payload); err != nil {
		if errors.Is(err, utils.ErrDecryption) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid QR token"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := payload.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid QR token"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": payload})
}
