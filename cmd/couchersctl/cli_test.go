package main

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchers-org/couchers-backend/internal/apps/communities"
	"github.com/couchers-org/couchers-backend/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.OpenDB(t, communities.New().Models()...)
}

func run(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(db)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestCommunityCommands(t *testing.T) {
	db := openDB(t)
	testutil.GenerateUser(t, db, testutil.WithUsername("founder"), testutil.WithGender("Man"))
	testutil.GenerateUser(t, db, testutil.WithUsername("helper"), testutil.WithGender("Woman"))

	output, err := run(t, db, "community", "create", "Buenos Aires", "--creator", "founder", "--json")
	require.NoError(t, err)
	var cluster communities.Cluster
	require.NoError(t, json.Unmarshal([]byte(output), &cluster))
	assert.Equal(t, "buenos-aires", cluster.Slug)
	node := itoa(cluster.ParentNodeID)

	output, err = run(t, db, "community", "set-description", node, "Tango and asado")
	require.NoError(t, err)
	assert.Equal(t, "The Buenos Aires description has been updated to:\nTango and asado\n", output)

	_, err = run(t, db, "community", "set-description", node, strings.Repeat("x", communities.MaxDescriptionLength+1))
	assert.ErrorIs(t, err, communities.ErrDescriptionTooLong)
	assert.Contains(t, err.Error(), "the limit is 500 characters")

	output, err = run(t, db, "admin", "add", node, "helper")
	require.NoError(t, err)
	assert.Equal(t, "helper is now an admin of Buenos Aires\n", output)

	output, err = run(t, db, "admin", "remove", node, "helper")
	require.NoError(t, err)
	assert.Equal(t, "helper has been removed as an admin from Buenos Aires\n", output)

	_, err = run(t, db, "admin", "remove", node, "helper")
	assert.ErrorIs(t, err, communities.ErrNotAdmin)

	output, err = run(t, db, "community", "incomplete", "--json")
	require.NoError(t, err)
	var rows []communities.IncompleteCommunity
	require.NoError(t, json.Unmarshal([]byte(output), &rows))
	require.Len(t, rows, 1)
	assert.False(t, rows[0].HasNonManAdmin)
	assert.Equal(t, "app.couchers.org/community/"+node+"/buenos-aires", rows[0].URL)

	output, err = run(t, db, "community", "incomplete")
	require.NoError(t, err)
	assert.Contains(t, output, "NON-MAN ADMIN")
	assert.Contains(t, output, "Buenos Aires")

	_, err = run(t, db, "community", "set-description", "abc", "x")
	assert.Error(t, err)
}

func TestDiscussionDelete(t *testing.T) {
	db := openDB(t)
	founder := testutil.GenerateUser(t, db, testutil.WithUsername("founder"))
	svc := communities.NewCommunityService(db, "app.couchers.org")
	cluster, err := svc.CreateCommunity(founder.ID, "Lisbon", "", nil)
	require.NoError(t, err)

	thread := communities.Thread{}
	require.NoError(t, db.Create(&thread).Error)
	d := communities.Discussion{Title: "Hi", ThreadID: thread.ID, CreatorUserID: founder.ID, OwnerClusterID: cluster.ID}
	require.NoError(t, db.Create(&d).Error)

	output, err := run(t, db, "discussion", "delete", itoa(d.ID))
	require.NoError(t, err)
	assert.Equal(t, "Deleted discussion "+itoa(d.ID)+"\n", output)

	_, err = run(t, db, "discussion", "delete", itoa(d.ID))
	assert.ErrorIs(t, err, communities.ErrDiscussionNotFound)
}

func TestUsersVisible(t *testing.T) {
	db := openDB(t)
	me := testutil.GenerateUser(t, db, testutil.WithUsername("me"))
	other := testutil.GenerateUser(t, db, testutil.WithUsername("other"))
	testutil.GenerateUser(t, db, testutil.WithUsername("ghost"), testutil.Invisible())
	testutil.GenerateUser(t, db, testutil.WithUsername("bystander"))
	blocker := testutil.GenerateUser(t, db, testutil.WithUsername("blocker"))
	testutil.MakeUserBlock(t, db, blocker, me)

	output, err := run(t, db, "users", "visible", "--json")
	require.NoError(t, err)
	var anon struct {
		Users []userRow `json:"users"`
		Total int64     `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &anon))
	assert.EqualValues(t, 4, anon.Total)

	output, err = run(t, db, "users", "visible", "--viewer", "me")
	require.NoError(t, err)
	assert.Contains(t, output, other.ID.String())
	assert.NotContains(t, output, "ghost")
	assert.NotContains(t, output, "blocker")
	assert.Contains(t, output, "3 visible")

	_, err = run(t, db, "users", "visible", "--viewer", "nobody")
	assert.Error(t, err)
}

func TestStatsCommands(t *testing.T) {
	db := openDB(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{10 * time.Hour, 20 * time.Hour, 25 * time.Hour, 77 * time.Hour} {
		testutil.GenerateUser(t, db, testutil.JoinedAt(start.Add(offset)))
	}

	output, err := run(t, db, "stats", "signups", "--window", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"2024-01-02", "1.5"}, strings.Fields(lines[2]))

	output, err = run(t, db, "stats", "growth", "--sample", "2", "--json")
	require.NoError(t, err)
	var series []struct {
		Date  time.Time `json:"date"`
		Value float64   `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &series))
	require.Len(t, series, 3)
	assert.Equal(t, 4.0, series[2].Value)

	_, err = run(t, db, "stats", "signups", "--window", "0")
	assert.Error(t, err)
}

func TestTablesColumns(t *testing.T) {
	db := openDB(t)

	output, err := run(t, db, "tables", "columns", "users")
	require.NoError(t, err)
	columns := strings.Split(strings.TrimSpace(output), "\n")
	assert.Contains(t, columns, "username")
	assert.Contains(t, columns, "is_invisible")

	_, err = run(t, db, "tables", "columns", "no_such_table")
	assert.Error(t, err)
}

func TestTokenIssue(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	db := openDB(t)
	user := testutil.GenerateUser(t, db, testutil.WithUsername("alice"))

	output, err := run(t, db, "token", "issue", "--user", "alice", "--ttl", "1h")
	require.NoError(t, err)

	parsed, err := jwt.Parse(strings.TrimSpace(output), func(*jwt.Token) (interface{}, error) {
		return []byte("cli-secret"), nil
	})
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), sub)

	_, err = run(t, db, "token", "issue")
	assert.Error(t, err)
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
