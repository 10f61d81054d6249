package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/config"
	"github.com/dbailuk/arcgis-automation/internal/logger"
	"github.com/dbailuk/arcgis-automation/internal/report"
	"github.com/dbailuk/arcgis-automation/internal/useraudit"
	"github.com/spf13/cobra"
)

// usersCmd generates the user-lifecycle audit report.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Audit user accounts and email a lifecycle report",
	Long: `users classifies every portal account by inactivity and content
footprint, writes a CSV detail report and a PDF summary with charts, and
emails the PDF to the configured recipient.`,
	RunE: runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	client, err := connectPortal(cmd.Context())
	if err != nil {
		return err
	}

	auditor := useraudit.New(client, logger.Logger)
	auditReport, err := auditor.Run(cmd.Context(),
		config.Instance.Audit.MaxUsers,
		config.Instance.Audit.InactiveThresholdDays,
	)
	if err != nil {
		logger.LogError("User audit failed", err, nil)
		return err
	}

	csvPath := filepath.Join(config.Instance.ReportsDir, "inactive_users_report.csv")
	if err := report.WriteUserCSV(csvPath, auditReport.Records); err != nil {
		logger.LogError("Failed to write CSV report", err, nil)
		return err
	}
	logger.LogInfo("User details report saved", map[string]interface{}{"path": csvPath})

	// Charts are optional: empty datasets simply leave gaps in the PDF.
	pie, err := report.ActivityPie(auditReport.ActiveCount(), auditReport.InactiveCount)
	if err != nil {
		logger.LogError("Failed to render activity chart", err, nil)
	}
	actions, err := report.ActionsBar(auditReport.ActionCounts)
	if err != nil {
		logger.LogError("Failed to render actions chart", err, nil)
	}
	roles, err := report.RolesBar(auditReport.RoleCounts)
	if err != nil {
		logger.LogError("Failed to render roles chart", err, nil)
	}

	summary := auditReport.Summary(csvPath)
	pdfPath := filepath.Join(config.Instance.ReportsDir,
		fmt.Sprintf("inactive_users_report_%s.pdf", time.Now().Format("20060102_150405")))
	if err := report.UserPDF(pdfPath, summary, pie, actions, roles); err != nil {
		logger.LogError("Failed to write PDF report", err, nil)
		return err
	}
	logger.LogInfo("PDF report generated", map[string]interface{}{"path": pdfPath})

	sender := newMailSender()
	if sender.Configured() {
		body := summary + "\n\nPDF report attached."
		if err := sender.Send("ArcGIS User Management Report Summary", body, pdfPath); err != nil {
			logger.LogError("Failed to send summary email", err, nil)
		}
	} else {
		logger.LogWarn("SMTP not configured, skipping email notification", nil)
	}

	fmt.Printf("user audit completed: %d user(s), %d inactive, report %s\n",
		len(auditReport.Records), auditReport.InactiveCount, pdfPath)
	return nil
}
