package useraudit

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	users     []portal.User
	searchErr error
	groups    map[string][]string
	groupsErr error
	items     map[string]int
	itemsErr  error
}

func (f *fakeDirectory) SearchUsers(_ context.Context, _ int) ([]portal.User, error) {
	return f.users, f.searchErr
}

func (f *fakeDirectory) UserGroups(_ context.Context, username string) ([]string, error) {
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups[username], nil
}

func (f *fakeDirectory) UserItemCount(_ context.Context, username string) (int, error) {
	if f.itemsErr != nil {
		return 0, f.itemsErr
	}
	return f.items[username], nil
}

// auditNow is the frozen reference time for inactivity math.
var auditNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestAuditor(dir DirectoryAPI) *Auditor {
	a := New(dir, zap.NewNop().Sugar())
	a.now = func() time.Time { return auditNow }
	return a
}

func daysAgoMillis(days int) int64 {
	return auditNow.AddDate(0, 0, -days).UnixMilli()
}

func TestSuggestAction_Rules(t *testing.T) {
	tests := []struct {
		name      string
		lastLogin string
		inactive  int
		content   int
		want      string
	}{
		{"recently active", "2026-08-01", 24, 10, ActionNone},
		{"inactive without content", "2026-01-01", 200, 0, ActionDeleteUser},
		{"inactive with little content", "2026-01-01", 200, 3, ActionDeleteBoth},
		{"inactive with much content", "2026-01-01", 200, 6, ActionArchiveContent},
		{"never logged in without content", neverLoggedIn, -1, 0, ActionDeleteUser},
		{"never logged in with content", neverLoggedIn, -1, 2, ActionDeleteBoth},
		{"at exactly the threshold", "2026-06-16", 70, 4, ActionNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Record{LastLogin: tc.lastLogin, DaysInactive: tc.inactive, ContentCount: tc.content}
			assert.Equal(t, tc.want, suggestAction(rec, 70))
		})
	}
}

func TestRun_ClassifiesUsers(t *testing.T) {
	dir := &fakeDirectory{
		users: []portal.User{
			{Username: "alice", FullName: "Alice A", Email: "alice@example.com", Role: "org_admin", LastLogin: daysAgoMillis(3)},
			{Username: "bob", FullName: "Bob B", Email: "bob@example.com", Role: "org_user", LastLogin: daysAgoMillis(120)},
			{Username: "carol", FullName: "Carol C", Email: "carol@example.com", Role: "org_user", LastLogin: -1},
		},
		groups: map[string][]string{"alice": {"Editors", "Admins"}},
		items:  map[string]int{"alice": 4, "bob": 7},
	}
	a := newTestAuditor(dir)

	report, err := a.Run(context.Background(), 1000, 70)
	require.NoError(t, err)
	require.Len(t, report.Records, 3)

	alice := report.Records[0]
	assert.Equal(t, "Editors, Admins", alice.Groups)
	assert.Equal(t, 3, alice.DaysInactive)
	assert.Equal(t, ActionNone, alice.SuggestedAction)

	bob := report.Records[1]
	assert.Equal(t, "No Groups", bob.Groups)
	assert.Equal(t, 120, bob.DaysInactive)
	assert.Equal(t, ActionArchiveContent, bob.SuggestedAction)

	carol := report.Records[2]
	assert.Equal(t, neverLoggedIn, carol.LastLogin)
	assert.Equal(t, -1, carol.DaysInactive)
	assert.Equal(t, ActionDeleteUser, carol.SuggestedAction)

	// Only bob is past the threshold; carol never logged in and is not
	// counted in the inactive tally, matching the source behavior.
	assert.Equal(t, 1, report.InactiveCount)
	assert.Equal(t, 2, report.ActiveCount())
	assert.Equal(t, map[string]int{"org_admin": 1, "org_user": 2}, report.RoleCounts)
	assert.Equal(t, 1, report.ActionCounts[ActionArchiveContent])
}

func TestRun_LookupFailuresDegradeGracefully(t *testing.T) {
	dir := &fakeDirectory{
		users:     []portal.User{{Username: "dave", Role: "org_user", LastLogin: daysAgoMillis(10)}},
		groupsErr: stderrors.New("groups unavailable"),
		itemsErr:  stderrors.New("content unavailable"),
	}
	a := newTestAuditor(dir)

	report, err := a.Run(context.Background(), 1000, 70)
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "No Groups", report.Records[0].Groups)
	assert.Zero(t, report.Records[0].ContentCount)
}

func TestRun_SearchErrorPropagates(t *testing.T) {
	dir := &fakeDirectory{searchErr: stderrors.New("portal down")}
	a := newTestAuditor(dir)

	_, err := a.Run(context.Background(), 1000, 70)
	assert.Error(t, err)
}

func TestReport_SummaryStatistics(t *testing.T) {
	report := &Report{
		ThresholdDays: 70,
		Records: []Record{
			{Username: "alice", DaysInactive: 10, ContentCount: 4, SuggestedAction: ActionNone},
			{Username: "bob", DaysInactive: 120, ContentCount: 8, SuggestedAction: ActionArchiveContent},
			{Username: "carol", DaysInactive: -1, ContentCount: 0, SuggestedAction: ActionDeleteUser},
		},
		InactiveCount: 1,
		ActionCounts: map[string]int{
			ActionNone:           1,
			ActionArchiveContent: 1,
			ActionDeleteUser:     1,
		},
	}

	assert.Equal(t, 12, report.TotalContent())
	assert.InDelta(t, 4.0, report.AverageContent(), 0.001)
	assert.InDelta(t, 65.0, report.AverageInactiveDays(), 0.001)

	summary := report.Summary("logs_reports/inactive_users_report.csv")
	assert.Contains(t, summary, "Total Users: 3")
	assert.Contains(t, summary, "Inactive Users (> 70 days): 1")
	assert.Contains(t, summary, ActionArchiveContent+": 1")
	assert.Contains(t, summary, "Detailed CSV Report: logs_reports/inactive_users_report.csv")
}
