package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"kodarr/internal/preflight"
)

const (
	hostStateOK          = "OK"
	hostStateDisabled    = "Disabled"
	hostStateUnreachable = "Unreachable"
)

func hostState(s preflight.HostStatus) string {
	switch {
	case !s.Enabled:
		return hostStateDisabled
	case s.Reachable:
		return hostStateOK
	default:
		return hostStateUnreachable
	}
}

func noticeMode(s preflight.HostStatus) string {
	switch {
	case !s.Enabled:
		return "-"
	case s.QuietNotifications:
		return "forced only"
	default:
		return "all"
	}
}

// renderHostTable lists hosts in probe order, which is priority order.
func renderHostTable(statuses []preflight.HostStatus, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Priority", "Name", "Endpoint", "Transport", "Enabled", "Status", "JSON-RPC", "Platform", "Notices"})
	for _, s := range statuses {
		tw.AppendRow(table.Row{
			strconv.Itoa(s.Priority),
			s.Name,
			s.Endpoint,
			s.Transport,
			yesNo(s.Enabled),
			hostState(s),
			s.Version,
			s.Platform,
			noticeMode(s),
		})
	}

	configs := []table.ColumnConfig{
		{Name: "Priority", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	}
	if colorize {
		configs = append(configs, table.ColumnConfig{
			Name: "Status",
			Transformer: func(val any) string {
				state, _ := val.(string)
				switch state {
				case hostStateOK:
					return text.FgGreen.Sprint(state)
				case hostStateUnreachable:
					return text.FgRed.Sprint(state)
				default:
					return text.FgHiBlack.Sprint(state)
				}
			},
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
