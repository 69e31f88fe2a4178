package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Output управляет форматированием вывода CLI.
//
// Данные идут в stdout (таблица или JSON), сообщения Success/Error —
// в stderr: вывод можно отдавать в pipe
// (cohort summary list --json | jq .).
type Output struct {
	json bool
	w    io.Writer
	errW io.Writer
}

// NewOutput создаёт Output. jsonMode=true переключает данные на JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		json: jsonMode,
		w:    os.Stdout,
		errW: os.Stderr,
	}
}

// Print выводит строки таблицей через tabwriter или, в JSON-режиме,
// сериализует jsonData с отступами.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.json {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		enc.Encode(jsonData)
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// formatRate форматирует долю успеха (0..1) в проценты для таблиц.
func formatRate(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

// formatDuration округляет длительность запуска до читаемой точности.
func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Millisecond).String()
}
