package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/rs/zerolog/log"
)

type Error struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	SupportId string `json:"support_id,omitempty"`
}

// StartJobRequest is the body of POST /jobs.
type StartJobRequest struct {
	Wallet   string   `json:"wallet" binding:"required"`
	Networks []string `json:"networks"`
}

type StartJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type DownloadParams struct {
	Format string `schema:"format"`
}

// TransactionQueryParams filters stored transactions.
type TransactionQueryParams struct {
	Wallet   string `schema:"wallet"`
	Network  string `schema:"network"`
	Protocol string `schema:"protocol"`
	Page     int    `schema:"page"`
	Limit    int    `schema:"limit"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
}

type QueryResponse struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

func writeError(c *gin.Context, message string, code int) {
	c.AbortWithStatusJSON(code, Error{
		Code:      code,
		Message:   message,
		SupportId: c.GetHeader("X-Request-Id"),
	})
}

var (
	BadRequestErrorHandler = func(c *gin.Context, err error) {
		writeError(c, err.Error(), http.StatusBadRequest)
	}
	NotFoundErrorHandler = func(c *gin.Context, err error) {
		writeError(c, err.Error(), http.StatusNotFound)
	}
	ConflictErrorHandler = func(c *gin.Context, err error) {
		writeError(c, err.Error(), http.StatusConflict)
	}
	InternalErrorHandler = func(c *gin.Context) {
		writeError(c, "An unexpected error occurred.", http.StatusInternalServerError)
	}
	UnauthorizedErrorHandler = func(c *gin.Context, err error) {
		writeError(c, err.Error(), http.StatusUnauthorized)
	}
)

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// ParseQueryParams decodes the request's query string into T.
func ParseQueryParams[T any](r *http.Request) (T, error) {
	var params T
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		log.Error().Err(err).Msg("Error parsing query params")
		return params, err
	}
	return params, nil
}
