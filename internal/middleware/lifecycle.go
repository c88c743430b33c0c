package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	internalDetail = "An internal server error occurred."
	panicDetail    = "Internal Server Error"
)

// Lifecycle wraps every request, including gin's NoRoute and NoMethod
// paths. It logs exactly one start and one finish record, renders the first
// error handlers attached with c.Error as {"detail": ...}, and recovers
// panics. Nothing is written when the handler already responded.
func Lifecycle(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestID),
		}
		log.Info("Request started", fields...)

		var (
			failure error
			stack   []byte
		)

		func() {
			defer func() {
				if r := recover(); r != nil {
					failure = fmt.Errorf("panic: %v", r)
					stack = debug.Stack()
					c.Abort()
					respond(c, http.StatusInternalServerError, panicDetail)
				}
			}()
			c.Next()
		}()

		if failure == nil && len(c.Errors) > 0 {
			failure = c.Errors[0].Err
			respond(c, apperrors.HTTPStatus(failure), apperrors.Detail(failure, internalDetail))
		}

		fields = append(fields,
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)

		switch {
		case failure == nil:
			log.Info("Request finished", fields...)
		case stack != nil:
			log.Error("Request finished", append(fields, zap.Error(failure), zap.ByteString("stack", stack))...)
		case apperrors.HTTPStatus(failure) >= http.StatusInternalServerError:
			log.Error("Request finished", append(fields, zap.Error(failure))...)
		default:
			log.Warn("Request finished", append(fields, zap.Error(failure))...)
		}
	}
}

// RequestID returns the id Lifecycle assigned to the request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// NotFound feeds gin's unmatched-route path through Lifecycle.
func NotFound(c *gin.Context) {
	_ = c.Error(apperrors.NotFound("Not Found"))
}

// MethodNotAllowed feeds gin's wrong-method path through Lifecycle.
func MethodNotAllowed(c *gin.Context) {
	_ = c.Error(&apperrors.Error{Code: apperrors.EInvalid, Status: http.StatusMethodNotAllowed, Msg: "Method Not Allowed"})
}

// respond writes the error envelope unless a response is already on the
// wire.
func respond(c *gin.Context, status int, detail string) {
	if c.Writer.Written() {
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
