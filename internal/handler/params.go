package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trade-desk-admin/internal/service"
)

const dateLayout = "2006-01-02"

// parseWindow reads the start/end query parameters (YYYY-MM-DD). Either
// side defaults to today, matching the daily-plan workflow.
func parseWindow(c *gin.Context) (service.DateRange, error) {
	window := service.Today()

	if s := c.Query("start"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return window, fmt.Errorf("invalid start date %q", s)
		}
		window.Start = t
	}
	if e := c.Query("end"); e != "" {
		t, err := time.ParseInLocation(dateLayout, e, time.Local)
		if err != nil {
			return window, fmt.Errorf("invalid end date %q", e)
		}
		window.End = t
	}
	if window.End.Before(window.Start) {
		return window, fmt.Errorf("end date before start date")
	}
	return window, nil
}

// parsePagination reads page/page_size query parameters with defaults
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if err != nil || pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}
