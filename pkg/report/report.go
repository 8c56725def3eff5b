// Package report classifies accumulated issues by severity and renders
// the human-readable console report. Everything here is pure: no side
// effects, input order preserved.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gadwant/codacy-report/pkg/codacy"
)

// Summary holds the per-severity counts of an accumulated issue set.
// Unrecognized levels are counted in no bucket but still appear in the
// rendered list.
type Summary struct {
	Errors   int
	Warnings int
	Infos    int
}

// Summarize partitions issues by severity in a single pass. Counts are a
// multiset property: independent of input order.
func Summarize(issues []codacy.Issue) Summary {
	var s Summary
	for _, issue := range issues {
		switch issue.Severity() {
		case codacy.SeverityError:
			s.Errors++
		case codacy.SeverityWarning:
			s.Warnings++
		case codacy.SeverityInfo:
			s.Infos++
		}
	}
	return s
}

// Recognized returns the number of issues counted in any bucket.
func (s Summary) Recognized() int {
	return s.Errors + s.Warnings + s.Infos
}

// Marker returns the console marker for a severity.
func Marker(severity codacy.Severity) string {
	switch severity {
	case codacy.SeverityError:
		return "❌"
	case codacy.SeverityWarning:
		return "⚠️"
	case codacy.SeverityInfo:
		return "ℹ️"
	default:
		return "•"
	}
}

// FormatIssue renders one issue as a multi-line block: marker and
// "[level] filePath:lineNumber" on the first line, then title, then
// message. The raw level text is shown verbatim, recognized or not.
func FormatIssue(issue codacy.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s:%s\n", Marker(issue.Severity()), issue.Level, issue.FilePath, issue.Line())
	fmt.Fprintf(&b, "   %s\n", issue.Title())
	fmt.Fprintf(&b, "   %s\n", issue.Message)
	return b.String()
}

// Render writes every issue block to w in accumulator order.
func Render(w io.Writer, issues []codacy.Issue) error {
	for _, issue := range issues {
		if _, err := fmt.Fprintf(w, "%s\n", FormatIssue(issue)); err != nil {
			return err
		}
	}
	return nil
}
