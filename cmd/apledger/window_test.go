package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/config"
	"apledger/internal/core"
	"apledger/internal/gateway/memory"
	"apledger/internal/services"
)

func TestWindowFlagsQuery(t *testing.T) {
	saved := *state
	t.Cleanup(func() { *state = saved })

	cfg := &config.Config{}
	cfg.Window.Days = 14
	state.cfg = cfg
	state.payables = services.NewPayables(memory.New(), services.WithClock(func() time.Time {
		return time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local)
	}))

	tests := []struct {
		name  string
		flags windowFlags
		want  core.WindowQuery
	}{
		{
			name:  "default window",
			flags: windowFlags{days: -1},
			want:  core.WindowQuery{Start: core.NewDate(2024, 6, 10), End: core.NewDate(2024, 6, 24), Status: core.OnlyPending},
		},
		{
			name:  "days override",
			flags: windowFlags{days: 3},
			want:  core.WindowQuery{Start: core.NewDate(2024, 6, 10), End: core.NewDate(2024, 6, 13), Status: core.OnlyPending},
		},
		{
			name:  "to alone reaches back to overdue items",
			flags: windowFlags{days: -1, to: "2024-06-05"},
			want:  core.WindowQuery{End: core.NewDate(2024, 6, 5), Status: core.OnlyPending},
		},
		{
			name:  "from alone is open ended",
			flags: windowFlags{days: -1, from: "2024-07-01"},
			want:  core.WindowQuery{Start: core.NewDate(2024, 7, 1), Status: core.OnlyPending},
		},
		{
			name:  "all with status",
			flags: windowFlags{days: -1, all: true, status: "paid", vendor: "aws"},
			want:  core.WindowQuery{Status: core.OnlyPaid, Vendor: "aws"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.query()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&windowFlags{days: -1, from: "2024-07-01", to: "2024-06-01"}).query()
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}
