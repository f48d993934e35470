package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	statusOK   = color.New(color.FgGreen).SprintFunc()
	statusWarn = color.New(color.FgYellow).SprintFunc()
	statusErr  = color.New(color.FgRed).SprintFunc()
)

// renderTable prints one bordered table.
func renderTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...)
	for _, row := range rows {
		t.Row(row...)
	}
	fmt.Println(t)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatPercent(correct, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(correct)/float64(total))
}

// metricRows flattens metric results into table rows, expanding detail keys
// for grouped metrics.
func metricRows(results []types.MetricResult) [][]string {
	var rows [][]string
	for _, m := range results {
		rows = append(rows, []string{m.Name, formatValue(m.Value)})
		for _, k := range sortedDetailKeys(m.Details) {
			if v, ok := m.Details[k].(float64); ok {
				rows = append(rows, []string{"  " + m.Name + "." + k, formatValue(v)})
			}
		}
	}
	return rows
}

func sortedDetailKeys(details map[string]interface{}) []string {
	if len(details) == 0 {
		return nil
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
