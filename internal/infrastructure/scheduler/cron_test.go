package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"every minute", "* * * * *", false},
		{"every 5 minutes", "*/5 * * * *", false},
		{"daily at 3am", "0 3 * * *", false},
		{"weekly sunday", "0 0 * * 0", false},
		{"list", "0,15,30,45 * * * *", false},
		{"range", "0 9-17 * * *", false},
		{"too few fields", "* * * *", true},
		{"too many fields", "* * * * * *", true},
		{"minute out of range", "60 * * * *", true},
		{"garbage", "foo * * * *", true},
		{"zero step", "*/0 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expr, ce.String())
		})
	}
}

func TestCronExpression_Next(t *testing.T) {
	// Wednesday, 14:37
	base := time.Date(2026, 8, 26, 14, 37, 12, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 8, 26, 14, 38, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 8, 26, 14, 45, 0, 0, time.UTC)},
		{"0 * * * *", time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)},
		{"0 3 * * *", time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC)},
		{"0 0 * * 0", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ce := MustParseCronExpression(tt.expr)
			assert.Equal(t, tt.want, ce.Next(base))
		})
	}
}

func TestCronExpression_NextFromExactMatch(t *testing.T) {
	// Next never returns the moment itself, only strictly later
	ce := MustParseCronExpression("0 * * * *")
	base := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 26, 16, 0, 0, 0, time.UTC), ce.Next(base))
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)
	base := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(10*time.Minute), s.Next(base))
	assert.Equal(t, "@every 10m0s", s.String())
}
