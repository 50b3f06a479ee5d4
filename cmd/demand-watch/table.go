package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/chrissnell/demandmonitor/internal/controllers/restserver"
)

const labelWidth = 24

var (
	headerColor = color.New(color.FgGreen)
	quietColor  = color.New(color.FgHiBlack)
	busyColor   = color.New(color.FgYellow)
	overColor   = color.New(color.FgRed, color.Bold)
	errorColor  = color.New(color.FgRed)
)

// renderTable writes one row per monitor with a cell per bucket. Counts at
// or above threshold are red and counts above half of it are yellow.
func renderTable(w io.Writer, resp *restserver.BatchResponse, threshold int) {
	headerColor.Fprintf(w, "Demand at %s  (%d min buckets, %d h)\n",
		resp.GeneratedUTC, resp.BucketMinutes, resp.HorizonHours)

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", labelWidth, "Monitor")
	for _, bk := range resp.Buckets {
		fmt.Fprintf(&b, "%5s", bk.Label)
	}
	fmt.Fprintf(&b, "%7s%6s", "Total", "Peak")
	headerColor.Fprintln(w, b.String())

	for _, m := range resp.Monitors {
		fmt.Fprintf(w, "%-*s", labelWidth, truncate(m.Label, labelWidth-1))
		if m.Error != "" {
			errorColor.Fprintln(w, m.Error)
			continue
		}
		for _, c := range m.Counts {
			cellColor(c, threshold).Fprintf(w, "%5d", c)
		}
		fmt.Fprintf(w, "%7d%6d\n", m.Total, m.Summary.Peak)
	}

	for _, e := range resp.Errors {
		errorColor.Fprintf(w, "monitor %d: %s\n", e.Index, e.Message)
	}
}

func cellColor(count, threshold int) *color.Color {
	switch {
	case threshold > 0 && count >= threshold:
		return overColor
	case threshold > 0 && count*2 > threshold:
		return busyColor
	}
	return quietColor
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}
