package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"frs/src/common"
	"frs/src/config"
	"frs/src/db"
	"frs/src/lib"
	"frs/src/middlewares"
	"frs/src/models"
	"frs/src/types"
	"frs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

func newReconciler() (*common.Reconciler, error) {
	key, err := config.QRSecret()
	if err != nil {
		return nil, err
	}
	return common.NewReconciler(db.GetStore(), lib.GetPaymentGateway(), key), nil
}

func paymentRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/cashfree", webhookHandler)

	payments := apiv1.Group("/payments")
	payments.Use(middlewares.AuthMiddleware)
	payments.
		POST("/orders", createOrderHandler).
		POST("/verify", middlewares.RateLimit("verify", 10, time.Minute), verifyOrderHandler)
	return apiv1
}

func createOrderHandler(ctx *gin.Context) {
	var body types.CreateOrderRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userId := ctx.GetUint("id")
	passType := types.PassType(body.PassType)

	store := db.GetStore()
	memberCount := body.MemberCount
	if passType.IsGroup() {
		if body.TeamID == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "group pass requires a team"})
			return
		}
		team, found, err := store.TeamByID(ctx, *body.TeamID)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not load team"})
			return
		}
		if !found {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "team does not exist"})
			return
		}
		// The roster, not the request, decides how many members get charged.
		memberCount = team.MemberCount
		if n := uint(len(team.Members)); n > 0 {
			memberCount = n
		}
	}

	amount, err := utils.ComputeAmount(passType, memberCount)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Amount != 0 && body.Amount != amount {
		log.Printf("Client-declared amount %d differs from computed amount %d for user %d (%s); charging the computed amount\n", body.Amount, amount, userId, passType)
	}

	user, found, err := store.UserByID(ctx, userId)
	if err != nil || !found {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	gw := lib.GetPaymentGateway()
	order, err := gw.CreateOrder(ctx, &lib.CreateOrderInput{
		Amount:        amount,
		Currency:      "INR",
		CustomerID:    user.UID,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		CustomerPhone: user.Phone,
		Note:          string(passType),
	})
	if err != nil {
		log.Printf("Error opening gateway order for user %d: %s\n", userId, err.Error())
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "could not create payment order"})
		return
	}

	payment := &models.Payment{
		OrderID:     order.OrderID,
		ReferenceID: uuid.NewString(),
		UserID:      userId,
		Amount:      amount,
		PassType:    passType,
		Status:      types.PAYMENT_PENDING,
		TeamID:      body.TeamID,
		Events:      body.Events,
		Days:        body.Days,
	}
	if err := store.CreatePayment(ctx, payment); err != nil {
		// The gateway order now exists with no local record. Reconciliation
		// will surface it as a distinct not-found error; flag it loudly here.
		log.Printf("ORPHAN ORDER %s: gateway order created but payment record write failed: %s\n", order.OrderID, err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":    "payment record could not be saved",
			"order_id": order.OrderID,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"order_id":           order.OrderID,
		"payment_session_id": order.SessionID,
		"amount":             amount,
	})
}

func verifyOrderHandler(ctx *gin.Context) {
	var body types.VerifyOrderRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := newReconciler()
	if err != nil {
		log.Printf("Reconciler configuration error: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error"})
		return
	}
	result, err := rec.Reconcile(ctx, body.OrderID)
	if err != nil {
		var notPaid *common.NotPaidError
		if errors.As(err, &notPaid) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":  "payment is not completed",
				"status": notPaid.Status,
			})
			return
		}
		if errors.Is(err, common.ErrPaymentNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "no payment record found for this order"})
			return
		}
		var gatewayErr *common.GatewayError
		if errors.As(err, &gatewayErr) {
			ctx.JSON(http.StatusBadGateway, gin.H{
				"error":   "payment gateway error",
				"details": gatewayErr.Err.Error(),
			})
			return
		}
		log.Printf("Error reconciling order %s: %s\n", body.OrderID, err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "could not verify payment",
			"details": err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"created": result.Created,
		"pass_id": result.PassID,
		"qr_code": result.QRCode,
	})
}

func webhookHandler(ctx *gin.Context) {
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		log.Printf("Error reading request body: %s\n", err.Error())
		ctx.Status(http.StatusServiceUnavailable)
		return
	}
	if secret := config.CashfreeWebhookSecret(); secret != "" {
		timestamp := ctx.GetHeader("x-webhook-timestamp")
		signature := ctx.GetHeader("x-webhook-signature")
		if !verifyWebhookSignature(secret, timestamp, payload, signature) {
			log.Println("Error verifying webhook signature")
			ctx.Status(http.StatusUnauthorized)
			return
		}
	}
	eventType := gjson.GetBytes(payload, "type").String()
	orderId := gjson.GetBytes(payload, "data.order.order_id").String()
	log.Printf("[CashfreeEvent] %s order=%s\n", eventType, orderId)
	if orderId == "" {
		ctx.Status(http.StatusBadRequest)
		return
	}
	rec, err := newReconciler()
	if err != nil {
		// A non-2xx makes the gateway redeliver once the config is fixed.
		log.Printf("Reconciler configuration error: %s\n", err.Error())
		ctx.Status(http.StatusInternalServerError)
		return
	}
	// Ack promptly; the transaction makes duplicate deliveries harmless.
	go func() {
		if _, err := rec.Reconcile(context.Background(), orderId); err != nil {
			log.Printf("Webhook reconciliation for order %s did not complete: %s\n", orderId, err.Error())
		}
	}()
	ctx.Status(http.StatusOK)
}

func verifyWebhookSignature(secret, timestamp string, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(signature))
}
