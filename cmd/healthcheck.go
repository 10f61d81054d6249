package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/config"
	"github.com/dbailuk/arcgis-automation/internal/healthcheck"
	"github.com/dbailuk/arcgis-automation/internal/logger"
	"github.com/dbailuk/arcgis-automation/internal/report"
	"github.com/spf13/cobra"
)

// healthcheckCmd probes the portal endpoints and emails a PDF report.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe portal health and email a PDF report",
	Long: `healthcheck probes every configured endpoint, runs a publish
round-trip against the portal to verify end-to-end publishing capability,
writes a PDF report, and emails it: an alert when anything failed, a
confirmation otherwise.`,
	RunE: runHealthcheck,
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	client, err := connectPortal(cmd.Context())
	if err != nil {
		return err
	}

	endpoints := make([]healthcheck.Endpoint, 0, len(config.Instance.Health.Endpoints))
	for _, ep := range config.Instance.Health.Endpoints {
		endpoints = append(endpoints, healthcheck.Endpoint{URL: ep.URL, Kind: ep.Kind})
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no health endpoints configured")
	}

	runner := healthcheck.NewRunner(client, endpoints, config.Instance.Portal.ProbeShapefile, logger.Logger)
	runReport := runner.Run(cmd.Context())

	pdfPath := filepath.Join(config.Instance.ReportsDir,
		fmt.Sprintf("arcgis_health_report_%s.pdf", time.Now().Format("20060102_150405")))
	if err := report.HealthPDF(pdfPath, runReport); err != nil {
		logger.LogError("Failed to write PDF report", err, nil)
		return err
	}
	logger.LogInfo("PDF report generated", map[string]interface{}{"path": pdfPath})

	sendHealthMail(runReport, pdfPath)

	for _, f := range runReport.Failures() {
		fmt.Println("FAIL:", f)
	}
	fmt.Printf("health check completed: %d endpoint(s), %d failure(s), report %s\n",
		len(runReport.Endpoints), len(runReport.Failures()), pdfPath)
	return nil
}

// sendHealthMail emails the report: an alert listing the failures when any
// exist, a short confirmation otherwise. Delivery problems are logged only.
func sendHealthMail(runReport healthcheck.RunReport, pdfPath string) {
	sender := newMailSender()
	if !sender.Configured() {
		logger.LogWarn("SMTP not configured, skipping email notification", nil)
		return
	}

	failures := runReport.Failures()
	var subject, body string
	if len(failures) > 0 {
		subject = "ALERT: ArcGIS Server Health Check Failure"
		body = "ALERT: ArcGIS Health Check Issues Detected\n\nThe following issues were found:\n\n" +
			strings.Join(failures, "\n") +
			"\n\nPlease investigate immediately."
	} else {
		subject = "ArcGIS Health Check Passed"
		body = "All ArcGIS services are running normally."
	}

	if err := sender.Send(subject, body, pdfPath); err != nil {
		logger.LogError("Failed to send health-check email", err, nil)
	}
}
