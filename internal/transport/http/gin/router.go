package httpgin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/service"
	"github.com/kirinyoku/tix-engine/internal/service/purchase"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter builds the HTTP API. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	auth Auth,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Public API
	v1.GET("/offerings", handleListOfferings(svcs))
	v1.GET("/offerings/:id", handleGetOffering(svcs))
	v1.GET("/offerings/:id/availability", handleGetAvailability(svcs))

	// Account API
	acct := v1.Group("", auth.Middleware())
	{
		acct.POST("/purchases", handleBuy(svcs, idem))
		acct.GET("/purchases", handleListPurchases(svcs))
		acct.GET("/account", handleGetOwnAccount(svcs))
		acct.GET("/transactions/:ref", handleGetTransaction(svcs))
		acct.POST("/transactions/:ref/cancel", handleCancel(svcs))
	}

	// Gate API
	gate := v1.Group("/redeem", auth.Middleware(), RequireRole(RoleAgent, RoleAdmin))
	{
		gate.GET("/:credential", handleRedeemQuery(svcs))
		gate.POST("", handleRedeem(svcs))
	}

	// Admin API
	adm := v1.Group("/admin", auth.Middleware(), AdminOnly())
	{
		adm.POST("/offerings", handleCreateOffering(svcs))
		adm.POST("/offerings/:id/restock", handleRestock(svcs))
		adm.POST("/offerings/:id/cancel", handleCancelOffering(svcs))
		adm.POST("/accounts", handleCreateAccount(svcs))
		adm.GET("/accounts/:id", handleGetAccount(svcs))
		adm.PUT("/accounts/:id/blocked", handleSetBlocked(svcs))
		adm.POST("/accounts/:id/refunds", handleManualRefund(svcs))
	}

	return r
}

// @Summary  List offerings
// @Param    limit  query  int  false  "page size"
// @Param    offset query  int  false  "offset"
// @Success  200  {array}  OfferingResponse
// @Router   /v1/offerings [get]
func handleListOfferings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Query.ListOfferings(
			c.Request.Context(),
			parseIntDefault(c.Query("limit"), 0),
			parseIntDefault(c.Query("offset"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]OfferingResponse, 0, len(out))
		for i := range out {
			resp = append(resp, toOfferingResponse(&out[i]))
		}

		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=15")
	}
}

// @Summary  Get offering
// @Param    id  path  int  true  "Offering ID"
// @Success  200  {object}  OfferingResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /v1/offerings/{id} [get]
func handleGetOffering(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		o, err := svcs.Query.GetOffering(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toOfferingResponse(o), "public, max-age=60")
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Offering ID"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /v1/offerings/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		cnt, err := svcs.Query.OfferingCounts(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, AvailabilityResponse{
			Total:     cnt.Total,
			Remaining: cnt.Remaining,
			Active:    cnt.Active,
			Used:      cnt.Used,
			Cancelled: cnt.Cancelled,
		}, "public, max-age=15")
	}
}

// @Summary  Buy tickets (idempotent)
// @Security BearerAuth
// @Param    req body  BuyRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first result for the same key"
// @Success  201 {object} BuyResponse
// @Failure  400 {object} ErrorResponse
// @Failure  402 {object} ErrorResponse "insufficient funds"
// @Failure  409 {object} ErrorResponse "sold out / cap / seat taken / idempotency key in progress"
// @Failure  410 {object} ErrorResponse "sales closed"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /v1/purchases [post]
func handleBuy(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BuyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		buyer := accountID(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemPurchase(buyer, idemKey)

			if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey); replayed {
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{
					Error: "idempotency key in progress",
					Code:  "IDEMPOTENCY_IN_PROGRESS",
				})
				return
			}
		}

		res, err := svcs.Purchase.Buy(ctx, purchase.BuyRequest{
			AccountID:  buyer,
			OfferingID: req.OfferingID,
			Quantity:   req.Quantity,
			Seat:       req.Seat,
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toBuyResponse(res)

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, key, header string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), key)
	if !ok {
		return false
	}

	c.Header("Idempotency-Key", header)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))

	return true
}

// @Summary  List own purchases
// @Security BearerAuth
// @Param    limit  query  int  false  "page size"
// @Param    offset query  int  false  "offset"
// @Success  200  {array}  PurchaseResponse
// @Router   /v1/purchases [get]
func handleListPurchases(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ps, err := svcs.Query.ListPurchases(
			c.Request.Context(),
			accountID(c),
			parseIntDefault(c.Query("limit"), 0),
			parseIntDefault(c.Query("offset"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toPurchaseResponses(ps))
	}
}

// @Summary  Get own account
// @Security BearerAuth
// @Success  200 {object} AccountResponse
// @Router   /v1/account [get]
func handleGetOwnAccount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svcs.Admin.GetAccount(c.Request.Context(), accountID(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, AccountResponse{ID: a.ID, BalanceCents: a.BalanceCents, Blocked: a.Blocked})
	}
}

// @Summary  Get transaction with purchases
// @Security BearerAuth
// @Param    ref  path  string  true  "Transaction ref (uuid)"
// @Success  200 {object} TransactionResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/transactions/{ref} [get]
func handleGetTransaction(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseUUIDParam(c, "ref")
		if !ok {
			return
		}

		t, err := svcs.Query.GetTransaction(c.Request.Context(), accountID(c), ref)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTransactionResponse(t))
	}
}

// @Summary  Cancel a purchase transaction
// @Security BearerAuth
// @Param    ref  path  string  true  "Transaction ref (uuid)"
// @Success  200 {object} CancelResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already used / already cancelled"
// @Failure  422 {object} ErrorResponse "refund deadline passed"
// @Router   /v1/transactions/{ref}/cancel [post]
func handleCancel(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseUUIDParam(c, "ref")
		if !ok {
			return
		}

		res, err := svcs.Purchase.Cancel(c.Request.Context(), accountID(c), ref)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toCancelResponse(res))
	}
}

// @Summary  Redeem a credential
// @Security BearerAuth
// @Param    credential  path   string  true   "Credential"
// @Param    agent       query  string  false  "Gate agent"
// @Param    proof       query  string  false  "Credential proof"
// @Success  200 {object} RedeemResponse
// @Failure  403 {object} ErrorResponse "agent role required, or invalid proof"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already used / cancelled"
// @Failure  410 {object} ErrorResponse "boarding closed / expired"
// @Router   /v1/redeem/{credential} [get]
func handleRedeemQuery(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		redeem(c, svcs, RedeemRequest{
			Credential: c.Param("credential"),
			Agent:      c.Query("agent"),
			Proof:      c.Query("proof"),
		})
	}
}

// @Summary  Redeem a credential
// @Security BearerAuth
// @Param    req body  RedeemRequest true "payload"
// @Success  200 {object} RedeemResponse
// @Failure  403 {object} ErrorResponse "agent role required, or invalid proof"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already used / cancelled"
// @Failure  410 {object} ErrorResponse "boarding closed / expired"
// @Router   /v1/redeem [post]
func handleRedeem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RedeemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		redeem(c, svcs, req)
	}
}

func redeem(c *gin.Context, svcs *service.Services, req RedeemRequest) {
	agent := req.Agent
	if agent == "" {
		agent = "account:" + strconv.FormatInt(accountID(c), 10)
	}

	res, err := svcs.Redemption.Redeem(c.Request.Context(), req.Credential, agent, req.Proof)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toRedeemResponse(res))
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
