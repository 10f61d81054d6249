// Package useraudit builds the user-lifecycle report: every portal account
// is classified by inactivity and content footprint, and a suggested
// cleanup action is derived for the administrator.
package useraudit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/portal"
	"go.uber.org/zap"
)

// Suggested actions, ordered from least to most invasive.
const (
	ActionNone           = "Do nothing"
	ActionDeleteUser     = "Delete user"
	ActionDeleteBoth     = "Delete both content and user"
	ActionArchiveContent = "Archive content and delete user"
)

const neverLoggedIn = "Never Logged In"

// Record is one row of the audit report.
type Record struct {
	Username        string `csv:"Username"`
	FullName        string `csv:"Full Name"`
	Email           string `csv:"Email"`
	Role            string `csv:"Role"`
	Groups          string `csv:"Groups"`
	LastLogin       string `csv:"Last Login"`
	DaysInactive    int    `csv:"Days Inactive"` // -1 when the user never logged in
	ContentCount    int    `csv:"Content Count"`
	SuggestedAction string `csv:"Suggested Action"`
}

// Report aggregates the audit over all users.
type Report struct {
	ThresholdDays int
	Records       []Record
	InactiveCount int
	RoleCounts    map[string]int
	ActionCounts  map[string]int
}

// DirectoryAPI is the slice of the portal client the audit depends on.
type DirectoryAPI interface {
	SearchUsers(ctx context.Context, maxUsers int) ([]portal.User, error)
	UserGroups(ctx context.Context, username string) ([]string, error)
	UserItemCount(ctx context.Context, username string) (int, error)
}

// Auditor runs user-lifecycle audits.
type Auditor struct {
	portal DirectoryAPI
	log    *zap.SugaredLogger

	now func() time.Time
}

// New creates an Auditor.
func New(p DirectoryAPI, log *zap.SugaredLogger) *Auditor {
	return &Auditor{portal: p, log: log, now: time.Now}
}

// Run retrieves up to maxUsers accounts and classifies each one. Group and
// content lookups degrade to "No Groups"/0 on error rather than aborting
// the audit.
func (a *Auditor) Run(ctx context.Context, maxUsers, thresholdDays int) (*Report, error) {
	users, err := a.portal.SearchUsers(ctx, maxUsers)
	if err != nil {
		return nil, err
	}
	a.log.Infow("Retrieved users from the portal", "count", len(users))

	report := &Report{
		ThresholdDays: thresholdDays,
		RoleCounts:    make(map[string]int),
		ActionCounts:  make(map[string]int),
	}
	now := a.now().UTC()

	for _, user := range users {
		rec := Record{
			Username: user.Username,
			FullName: user.FullName,
			Email:    user.Email,
			Role:     user.Role,
		}

		if user.LastLogin < 0 {
			rec.LastLogin = neverLoggedIn
			rec.DaysInactive = -1
		} else {
			lastLogin := time.UnixMilli(user.LastLogin).UTC()
			rec.LastLogin = lastLogin.Format("2006-01-02")
			rec.DaysInactive = int(now.Sub(lastLogin).Hours() / 24)
		}

		groups, err := a.portal.UserGroups(ctx, user.Username)
		if err != nil {
			a.log.Errorw("Error retrieving groups for user", "user", user.Username, "error", err)
		}
		if len(groups) == 0 {
			rec.Groups = "No Groups"
		} else {
			rec.Groups = strings.Join(groups, ", ")
		}

		count, err := a.portal.UserItemCount(ctx, user.Username)
		if err != nil {
			a.log.Errorw("Error retrieving items for user", "user", user.Username, "error", err)
			count = 0
		}
		rec.ContentCount = count

		rec.SuggestedAction = suggestAction(rec, thresholdDays)
		a.log.Debugw("Classified user",
			"user", rec.Username,
			"days_inactive", rec.DaysInactive,
			"action", rec.SuggestedAction,
		)

		report.Records = append(report.Records, rec)
		report.RoleCounts[rec.Role]++
		report.ActionCounts[rec.SuggestedAction]++
		if rec.DaysInactive > thresholdDays {
			report.InactiveCount++
		}
	}

	a.log.Infow("User audit completed",
		"users", len(report.Records),
		"inactive", report.InactiveCount,
		"threshold_days", thresholdDays,
	)
	return report, nil
}

// suggestAction derives the cleanup recommendation for one account.
func suggestAction(rec Record, thresholdDays int) string {
	dormant := rec.LastLogin == neverLoggedIn || rec.DaysInactive > thresholdDays
	if !dormant {
		return ActionNone
	}
	switch {
	case rec.ContentCount > 5:
		return ActionArchiveContent
	case rec.ContentCount > 0:
		return ActionDeleteBoth
	default:
		return ActionDeleteUser
	}
}

// TotalContent sums content items across all users.
func (r *Report) TotalContent() int {
	total := 0
	for _, rec := range r.Records {
		total += rec.ContentCount
	}
	return total
}

// AverageContent is the mean content count per user.
func (r *Report) AverageContent() float64 {
	if len(r.Records) == 0 {
		return 0
	}
	return float64(r.TotalContent()) / float64(len(r.Records))
}

// AverageInactiveDays averages inactivity across users that have logged in
// at least once.
func (r *Report) AverageInactiveDays() float64 {
	sum, n := 0, 0
	for _, rec := range r.Records {
		if rec.DaysInactive >= 0 {
			sum += rec.DaysInactive
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// ActiveCount is the number of users not past the inactivity threshold.
func (r *Report) ActiveCount() int {
	return len(r.Records) - r.InactiveCount
}

// Summary renders the statistics block used in the PDF report and the
// notification email body.
func (r *Report) Summary(csvPath string) string {
	var b strings.Builder
	b.WriteString("Summary\n\n")
	fmt.Fprintf(&b, "Total Users: %d\n", len(r.Records))
	fmt.Fprintf(&b, "Average Content Count per User: %.2f\n", r.AverageContent())
	fmt.Fprintf(&b, "Average Inactive Days (for users with data): %.2f\n", r.AverageInactiveDays())
	fmt.Fprintf(&b, "Inactive Users (> %d days): %d\n", r.ThresholdDays, r.InactiveCount)
	b.WriteString("\nSuggested Actions Distribution:\n")
	for _, action := range []string{ActionNone, ActionDeleteUser, ActionDeleteBoth, ActionArchiveContent} {
		if count, ok := r.ActionCounts[action]; ok {
			fmt.Fprintf(&b, " - %s: %d\n", action, count)
		}
	}
	if csvPath != "" {
		fmt.Fprintf(&b, "\nDetailed CSV Report: %s", csvPath)
	}
	return b.String()
}
