package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

const (
	CodeRateLimited   = "ERR_RATE_LIMITED"
	CodeInternalError = "ERR_INTERNAL"
	CodeUnauthorized  = "ERR_UNAUTHORIZED"
)

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RateLimiter limits requests per client ip. formattedRate uses the limiter format, e.g. "20-S".
func RateLimiter(formattedRate string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, err
	}
	l := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(
		l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.PureJSON(http.StatusTooManyRequests, errorBody{
				Code:  CodeRateLimited,
				Error: "rate limit exceeded",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.PureJSON(http.StatusInternalServerError, errorBody{
				Code:  CodeInternalError,
				Error: err.Error(),
			})
		}),
	), nil
}
