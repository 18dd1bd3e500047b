package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(time.Second, nil, 3)
	assert.Zero(t, s.ops)
	assert.Equal(t, int64(3), s.failures)
}

func TestRunLoadtestAgainstMiniredis(t *testing.T) {
	var out bytes.Buffer
	err := runLoadtest(context.Background(), &out, loadtestOptions{
		sessions:    20,
		concurrency: 4,
		ops:         50,
		prefix:      "lt",
	})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "get: ops=50 failures=0")
	assert.Contains(t, got, "set-active-organization: ops=50 failures=0")
	assert.Contains(t, got, "list-user-sessions: ops=50 failures=0")
	assert.True(t, strings.HasPrefix(got, "using miniredis"))
}

func TestLoadtestCommandValidatesFlags(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"loadtest", "--ops", "0"})
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
