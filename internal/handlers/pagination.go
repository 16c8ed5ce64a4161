package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperror"
)

const (
	defaultPage  = int64(1)
	defaultLimit = int64(20)
	maxLimit     = int64(100)
)

// parsePaginationParams reads page and limit. Both absent means no
// pagination, which the caller sees as (0, 0).
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	if pageStr == "" && limitStr == "" {
		return 0, 0, nil
	}

	page := defaultPage
	limit := defaultLimit

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperror.InvalidArgument("page must be a positive integer")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperror.InvalidArgument("limit must be a positive integer")
		}
		limit = l
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit, nil
}

func paginated(data interface{}, page, limit, total int64) gin.H {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = int64(math.Ceil(float64(total) / float64(limit)))
	}
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}
