// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var baseTimestamp = time.Now()

var levelStyles = map[logrus.Level]func(...string) string{
	logrus.InfoLevel: lipgloss.NewStyle().Background(lipgloss.Color("8")).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render,
	logrus.WarnLevel: lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render,
	logrus.ErrorLevel: lipgloss.NewStyle().Background(lipgloss.Color("9")).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render,
	logrus.FatalLevel: lipgloss.NewStyle().Background(lipgloss.Color("9")).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render,
	logrus.DebugLevel: lipgloss.NewStyle().Background(lipgloss.Color("12")).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render,
	logrus.TraceLevel: lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("15")).Render,
}

var levelBadges = map[logrus.Level]string{
	logrus.InfoLevel:  "i",
	logrus.WarnLevel:  "W",
	logrus.ErrorLevel: "E",
	logrus.FatalLevel: "!",
	logrus.PanicLevel: "X",
	logrus.TraceLevel: "T",
	logrus.DebugLevel: "D",
}

// TextFormatter renders log entries with a single-character level badge and
// the number of seconds since the program started, falling back to a plain
// key=value layout when the output is not a terminal.
type TextFormatter struct {
	// Set to true to bypass checking for a TTY before outputting colors.
	ForceColors bool

	// Force disabling colors.  For a TTY colors are enabled by default.
	DisableColors bool

	// Disable timestamp logging, useful when output is redirected to a
	// logging system that already adds timestamps.
	DisableTimestamp bool

	// Timestamp format to use for display when the output is not a terminal.
	TimestampFormat string

	isTerminal bool

	sync.Once
}

func (f *TextFormatter) init(entry *logrus.Entry) {
	if entry.Logger != nil {
		f.isTerminal = checkIfTerminal(entry.Logger.Out)
	}
}

func checkIfTerminal(w io.Writer) bool {
	switch v := w.(type) {
	case *os.File:
		return term.IsTerminal(int(v.Fd()))
	default:
		return false
	}
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	f.Do(func() { f.init(entry) })

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	if (f.ForceColors || f.isTerminal) && !f.DisableColors {
		style, ok := levelStyles[entry.Level]
		if !ok {
			style = levelStyles[logrus.ErrorLevel]
		}

		level := style(fmt.Sprintf(" %1s ", levelBadges[entry.Level]))

		if f.DisableTimestamp {
			fmt.Fprintf(b, "%s %s", level, entry.Message)
		} else {
			fmt.Fprintf(b, "%s [%04d] %s", level, int(time.Since(baseTimestamp)/time.Second), entry.Message)
		}

		for _, k := range keys {
			fmt.Fprintf(b, " %s=%+v", style(k), entry.Data[k])
		}
	} else {
		if !f.DisableTimestamp {
			fmt.Fprintf(b, "time=%s ", entry.Time.Format(timestampFormat))
		}

		fmt.Fprintf(b, "level=%s msg=%q", entry.Level.String(), entry.Message)

		for _, k := range keys {
			fmt.Fprintf(b, " %s=%+v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}
