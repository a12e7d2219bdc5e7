package cli

import (
	"net/http"

	"finsight/internal/config"
	"finsight/internal/report"
)

// NewReportClient builds the report client for the configured backend.
func NewReportClient(cfg *config.Config) *report.Client {
	var gen report.Generator
	switch cfg.ReportBackend {
	case config.ReportOllama:
		gen = report.NewOllamaGenerator(cfg.ReportBaseURL, cfg.ReportModel, cfg.ReportTimeout)
	default:
		gen = report.NewOpenAIGenerator(report.OpenAIConfig{
			APIKey:     cfg.ReportAPIKey,
			BaseURL:    cfg.ReportBaseURL,
			Model:      cfg.ReportModel,
			HTTPClient: &http.Client{Timeout: cfg.ReportTimeout},
		})
	}
	return report.NewClient(gen)
}
