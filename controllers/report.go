package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonflow-backend/services"
)

type ReportController struct {
	Reports *services.ReportService
}

func (ctl *ReportController) List(c *gin.Context) {
	reports, err := ctl.Reports.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (ctl *ReportController) Get(c *gin.Context) {
	report, err := ctl.Reports.Get(c.Request.Context(), c.Param("month"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Generate computes (or recomputes) the month's rollup.
func (ctl *ReportController) Generate(c *gin.Context) {
	report, err := ctl.Reports.Generate(c.Request.Context(), c.Param("month"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Summarize streams the AI narrative for an existing report as server-sent
// events; the complete text is stored once the stream finishes.
func (ctl *ReportController) Summarize(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	_, err := ctl.Reports.Summarize(c.Request.Context(), c.Param("month"), func(chunk string) error {
		payload, err := json.Marshal(gin.H{"type": "text", "content": chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		payload, _ := json.Marshal(gin.H{"type": "error", "message": err.Error()})
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
		return
	}

	fmt.Fprint(c.Writer, "data: {\"type\": \"done\"}\n\n")
	c.Writer.Flush()
}
