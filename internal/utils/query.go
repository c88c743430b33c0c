package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
)

// QueryInt64 reads an integer query parameter, returning def when the
// parameter is absent. Sign is not checked here.
func QueryInt64(c *gin.Context, key string, def int64) (int64, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Invalid(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// Page returns the skip and limit query parameters with their defaults.
func Page(c *gin.Context) (skip, limit int64, err error) {
	if skip, err = QueryInt64(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = QueryInt64(c, "limit", 10); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
