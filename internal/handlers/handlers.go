package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/api"
	"github.com/ledgerlens/defi-insight/internal/classifier"
	"github.com/ledgerlens/defi-insight/internal/common"
	"github.com/ledgerlens/defi-insight/internal/middleware"
	"github.com/ledgerlens/defi-insight/internal/orchestrator"
	"github.com/ledgerlens/defi-insight/internal/report"
	"github.com/ledgerlens/defi-insight/internal/storage"
)

type JobService interface {
	Start(wallet string, networks []string) (string, error)
	Status(id string) (orchestrator.JobState, error)
	Result(id string) (*orchestrator.JobResult, error)
}

type TransactionClassifier interface {
	ClassifyWithLayer(ctx context.Context, tx *common.Transaction, network string) (classifier.Classification, string)
}

type Handlers struct {
	jobs       JobService
	classifier TransactionClassifier
	storage    storage.IStorage
	networks   []string
}

// New wires the handlers. store may be nil, in which case the stored
// transaction endpoint answers 503.
func New(jobs JobService, c TransactionClassifier, store storage.IStorage, networks []string) *Handlers {
	return &Handlers{jobs: jobs, classifier: c, storage: store, networks: networks}
}

type BasicAuth struct {
	Username string
	Password string
}

// Register mounts every route on r. Health and metrics stay unauthenticated.
func (h *Handlers) Register(r *gin.Engine, auth BasicAuth) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root := r.Group("/")
	root.Use(middleware.Authorization(auth.Username, auth.Password))
	{
		root.POST("/jobs", h.StartJob)
		root.GET("/jobs/:id", h.GetJob)
		root.GET("/jobs/:id/analysis", h.GetJobAnalysis)
		root.GET("/jobs/:id/download", h.DownloadJob)
		root.GET("/transactions", h.GetTransactions)
		root.GET("/wallets/:address/analysis", h.GetWalletAnalysis)
		root.POST("/:network/classify", h.Classify)
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (h *Handlers) StartJob(c *gin.Context) {
	var req api.StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestErrorHandler(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := api.ValidateWallet(req.Wallet); err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}
	networks := req.Networks
	if len(networks) == 0 {
		networks = h.networks
	}
	if err := api.ValidateNetworks(networks, h.networks); err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}

	id, err := h.jobs.Start(req.Wallet, networks)
	if err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.StartJobResponse{JobID: id, Status: string(orchestrator.StatusPending)})
}

func (h *Handlers) GetJob(c *gin.Context) {
	state, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		h.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handlers) GetJobAnalysis(c *gin.Context) {
	result, err := h.jobs.Result(c.Param("id"))
	if err != nil {
		h.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) DownloadJob(c *gin.Context) {
	params, err := api.ParseQueryParams[api.DownloadParams](c.Request)
	if err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}
	format, err := api.NormalizeFormat(params.Format)
	if err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}

	id := c.Param("id")
	result, err := h.jobs.Result(id)
	if err != nil {
		h.jobError(c, err)
		return
	}

	filename := fmt.Sprintf("defi_transactions_%s.%s", id, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	switch format {
	case api.FormatParquet:
		data, err := report.ParquetBytes(result.Rows)
		if err != nil {
			log.Error().Err(err).Str("job", id).Msg("Failed to encode parquet report")
			api.InternalErrorHandler(c)
			return
		}
		c.Data(http.StatusOK, "application/vnd.apache.parquet", data)
	default:
		c.Data(http.StatusOK, "text/csv; charset=utf-8", result.CSV)
	}
}

func (h *Handlers) requireStorage(c *gin.Context) bool {
	if h.storage == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, api.Error{Code: http.StatusServiceUnavailable, Message: "storage is not configured"})
		return false
	}
	return true
}

func (h *Handlers) GetTransactions(c *gin.Context) {
	if !h.requireStorage(c) {
		return
	}
	params, err := api.ParseQueryParams[api.TransactionQueryParams](c.Request)
	if err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}
	if err := api.ValidateTransactionQuery(&params); err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}

	txs, err := h.storage.GetTransactions(c.Request.Context(), storage.QueryFilter{
		WalletAddress: params.Wallet,
		Network:       params.Network,
		Protocol:      params.Protocol,
		Limit:         params.Limit,
		Offset:        params.Page * params.Limit,
	})
	if err != nil {
		log.Error().Err(err).Msg("Error querying stored transactions")
		api.InternalErrorHandler(c)
		return
	}
	c.JSON(http.StatusOK, api.QueryResponse{
		Meta: api.Meta{Page: params.Page, Limit: params.Limit, TotalItems: len(txs)},
		Data: txs,
	})
}

// GetWalletAnalysis returns the most recent stored summary of a wallet.
func (h *Handlers) GetWalletAnalysis(c *gin.Context) {
	if !h.requireStorage(c) {
		return
	}
	wallet := c.Param("address")
	if err := api.ValidateWallet(wallet); err != nil {
		api.BadRequestErrorHandler(c, err)
		return
	}
	analysis, err := h.storage.GetLatestWalletAnalysis(c.Request.Context(), common.NormalizeAddress(wallet))
	if err != nil {
		log.Error().Err(err).Str("wallet", wallet).Msg("Error querying wallet analysis")
		api.InternalErrorHandler(c)
		return
	}
	if analysis == nil {
		api.NotFoundErrorHandler(c, fmt.Errorf("no analysis stored for wallet %s", wallet))
		return
	}
	c.JSON(http.StatusOK, analysis)
}

type classifyResponse struct {
	Network        string                    `json:"network"`
	Hash           string                    `json:"hash"`
	Classification classifier.Classification `json:"classification"`
	Layer          string                    `json:"layer"`
}

// Classify classifies one transaction posted in the explorer txlist shape.
func (h *Handlers) Classify(c *gin.Context) {
	var tx common.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		api.BadRequestErrorHandler(c, fmt.Errorf("invalid transaction: %w", err))
		return
	}
	network := strings.ToLower(c.Param("network"))
	result, layer := h.classifier.ClassifyWithLayer(c.Request.Context(), &tx, network)
	c.JSON(http.StatusOK, classifyResponse{
		Network:        network,
		Hash:           tx.Hash,
		Classification: result,
		Layer:          layer,
	})
}

func (h *Handlers) jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrJobNotFound):
		api.NotFoundErrorHandler(c, err)
	case errors.Is(err, orchestrator.ErrJobNotReady), errors.Is(err, orchestrator.ErrJobFailed):
		api.ConflictErrorHandler(c, err)
	default:
		log.Error().Err(err).Msg("Job lookup failed")
		api.InternalErrorHandler(c)
	}
}
