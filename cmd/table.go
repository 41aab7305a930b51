package cmd

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"speech2srt/internal/deps"
)

func statusLabel(s deps.Status, colorize bool) string {
	label, attr := "OK", color.FgGreen
	switch {
	case s.Available:
	case s.Optional:
		label, attr = "WARN", color.FgYellow
	default:
		label, attr = "MISSING", color.FgRed
	}
	c := color.New(attr)
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(label)
}

// dependencyTable renders the doctor report, one row per checked program.
func dependencyTable(statuses []deps.Status, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Dependency", "Status", "", "Purpose", "Detail"})

	for _, s := range statuses {
		need := "required"
		if s.Optional {
			need = "optional"
		}
		tw.AppendRow(table.Row{s.Name, statusLabel(s, colorize), need, s.Description, s.Detail})
	}

	// Resolved paths and python output can be long.
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Detail", WidthMax: 60},
	})
	return tw.Render()
}
