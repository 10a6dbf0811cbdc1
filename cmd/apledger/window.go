package main

import (
	"github.com/spf13/cobra"

	"apledger/internal/core"
)

// windowFlags selects records for list, export and edit. With no dates the
// window is the pending items due from today through today + window.days;
// --from or --to alone leaves the other side of the window open.
type windowFlags struct {
	from   string
	to     string
	days   int
	status string
	vendor string
	all    bool
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.days, "days", -1, "Days ahead of today (default from window.days)")
	cmd.Flags().StringVar(&f.status, "status", "", "Status filter: pending, paid or any")
	cmd.Flags().StringVar(&f.vendor, "vendor", "", "Vendor substring, case insensitive")
	cmd.Flags().BoolVar(&f.all, "all", false, "Every record, no date or status filter")
}

func (f *windowFlags) query() (core.WindowQuery, error) {
	days := f.days
	if days < 0 {
		days = state.cfg.WindowDays()
	}

	q := state.payables.DefaultWindow(days)
	switch {
	case f.all:
		q = core.WindowQuery{Status: core.AnyStatus}
	case f.from != "" || f.to != "":
		// explicit dates replace the default range; an unset side stays open
		q.Start, q.End = core.Date{}, core.Date{}
	}
	if f.from != "" {
		d, err := core.ParseDate(f.from)
		if err != nil {
			return core.WindowQuery{}, err
		}
		q.Start = d
	}
	if f.to != "" {
		d, err := core.ParseDate(f.to)
		if err != nil {
			return core.WindowQuery{}, err
		}
		q.End = d
	}
	if f.status != "" {
		s, err := core.ParseStatusFilter(f.status)
		if err != nil {
			return core.WindowQuery{}, err
		}
		q.Status = s
	}
	q.Vendor = f.vendor
	return q, q.Validate()
}
