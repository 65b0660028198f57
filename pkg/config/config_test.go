package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}, cfg.Timetable.Days)
	assert.Equal(t, 8, cfg.Timetable.PeriodsPerDay)
	assert.Equal(t, 5*time.Second, cfg.Timetable.CommitTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Reconciler.Interval)
	assert.True(t, cfg.Reconciler.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMETABLE_DAYS", " mon, tue ,, wed ")
	v.Set("TIMETABLE_PERIODS_PER_DAY", 0)
	v.Set("ASSIGN_COMMIT_TIMEOUT", "not-a-duration")
	v.Set("RECONCILE_INTERVAL", "1h")

	cfg := fromViper(v)

	assert.Equal(t, []string{"mon", "tue", "wed"}, cfg.Timetable.Days)
	assert.Equal(t, 8, cfg.Timetable.PeriodsPerDay)
	assert.Equal(t, 5*time.Second, cfg.Timetable.CommitTimeout)
	assert.Equal(t, time.Hour, cfg.Reconciler.Interval)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, b,"))
}
