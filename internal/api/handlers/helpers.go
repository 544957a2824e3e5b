package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/recording"
	"github.com/playmatatu/plinko/internal/service"
)

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrUnsupportedRows),
		errors.Is(err, game.ErrUnsupportedTable),
		errors.Is(err, game.ErrUnknownRisk),
		errors.Is(err, game.ErrInvalidSlot),
		errors.Is(err, game.ErrInvalidBet),
		errors.Is(err, service.ErrMissingBoard),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrBetTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, recording.ErrAlreadyRecording):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// pagination reads limit and offset query params, clamping limit to max.
func pagination(c *gin.Context, defaultLimit, max int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if max > 0 && limit > max {
		limit = max
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// paramInt parses a path parameter as an int.
func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
