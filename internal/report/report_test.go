package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/healthcheck"
	"github.com/dbailuk/arcgis-automation/internal/useraudit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUserCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inactive_users_report.csv")
	records := []useraudit.Record{
		{
			Username:        "alice",
			FullName:        "Alice A",
			Email:           "alice@example.com",
			Role:            "org_admin",
			Groups:          "Editors, Admins",
			LastLogin:       "2026-08-22",
			DaysInactive:    3,
			ContentCount:    4,
			SuggestedAction: useraudit.ActionNone,
		},
		{
			Username:        "carol",
			LastLogin:       "Never Logged In",
			DaysInactive:    -1,
			SuggestedAction: useraudit.ActionDeleteUser,
		},
	}

	require.NoError(t, WriteUserCSV(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, string(utf8BOM)), "CSV must start with a UTF-8 BOM")
	assert.Contains(t, content, "Username,Full Name,Email,Role,Groups,Last Login,Days Inactive,Content Count,Suggested Action")
	assert.Contains(t, content, "alice,Alice A,alice@example.com,org_admin,\"Editors, Admins\",2026-08-22,3,4,Do nothing")
	assert.Contains(t, content, "carol")
}

func TestActivityPie(t *testing.T) {
	buf, err := ActivityPie(12, 4)
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Greater(t, buf.Len(), 0)
}

func TestActivityPie_NoData(t *testing.T) {
	buf, err := ActivityPie(0, 0)
	assert.NoError(t, err)
	assert.Nil(t, buf)
}

func TestCountsBars(t *testing.T) {
	actions, err := ActionsBar(map[string]int{
		useraudit.ActionNone:       8,
		useraudit.ActionDeleteUser: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, actions)

	roles, err := RolesBar(map[string]int{"org_admin": 1, "org_user": 9})
	require.NoError(t, err)
	require.NotNil(t, roles)

	empty, err := RolesBar(nil)
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestHealthPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health_report.pdf")
	rep := healthcheck.RunReport{
		ID:   "run-1",
		When: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		Endpoints: []healthcheck.CheckResult{
			{URL: "https://gis.example.com/portal", Kind: "portal", Status: healthcheck.StatusSuccess, Latency: 120 * time.Millisecond},
			{URL: "https://gis.example.com/serverhs/rest/services", Kind: "server", Status: healthcheck.StatusFail, Latency: 2 * time.Second, Err: "status code 502"},
		},
		Probe: healthcheck.ProbeResult{Status: healthcheck.StatusSuccess, Elapsed: 8 * time.Second},
	}

	require.NoError(t, HealthPDF(path, rep))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestUserPDF_WithCharts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_report.pdf")

	pie, err := ActivityPie(10, 2)
	require.NoError(t, err)
	bars, err := ActionsBar(map[string]int{useraudit.ActionNone: 10, useraudit.ActionDeleteUser: 2})
	require.NoError(t, err)

	summary := "Summary\n\nTotal Users: 12\nInactive Users (> 70 days): 2"
	require.NoError(t, UserPDF(path, summary, pie, bars, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
