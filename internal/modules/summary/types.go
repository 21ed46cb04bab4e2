package summary

import "github.com/compresso/core/internal/models"

type summarizeDTO struct {
	Mode   string `json:"mode"   binding:"required"`
	Input  string `json:"input"  binding:"required"`
	Detail string `json:"detail"`
	Model  string `json:"model"`
	Locale string `json:"locale"`
}

// renderedResponse is the permalink payload when HTML rendering is requested.
type renderedResponse struct {
	*models.SummaryResult
	ContentHTML string `json:"content_html"`
}
