package codacy

import (
	"encoding/json"
	"strconv"
)

// Placeholder values for fields the search endpoint may omit.
const (
	UnknownFilePath = "unknown"
	UnknownLevel    = "unknown"
	NoTitle         = "No title"
	NoMessage       = "No message"
)

// Severity is the closed classification of an issue level.
type Severity int

const (
	// SeverityError is a finding with level "Error".
	SeverityError Severity = iota

	// SeverityWarning is a finding with level "Warning".
	SeverityWarning

	// SeverityInfo is a finding with level "Info".
	SeverityInfo

	// SeverityUnrecognized is any other level text. The raw text stays on
	// the Issue so it can be displayed verbatim.
	SeverityUnrecognized
)

// ParseSeverity classifies a raw level string by exact match.
func ParseSeverity(raw string) Severity {
	switch raw {
	case "Error":
		return SeverityError
	case "Warning":
		return SeverityWarning
	case "Info":
		return SeverityInfo
	default:
		return SeverityUnrecognized
	}
}

// String returns the canonical name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	default:
		return "Unrecognized"
	}
}

// PatternInfo is the pattern description attached to an issue.
type PatternInfo struct {
	Title string `json:"title"`
}

// Issue is one finding returned by the issue search endpoint. Issues are
// immutable after decoding; the undecoded response object is retained so
// the snapshot can persist it byte-for-byte.
type Issue struct {
	FilePath    string      `json:"filePath"`
	LineNumber  *int        `json:"lineNumber"`
	Level       string      `json:"level"`
	PatternInfo PatternInfo `json:"patternInfo"`
	Message     string      `json:"message"`

	raw json.RawMessage
}

// UnmarshalJSON decodes an issue, keeps the raw object, and fills the
// display placeholders for absent fields.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*i = Issue(p)
	i.raw = append(json.RawMessage(nil), data...)

	if i.FilePath == "" {
		i.FilePath = UnknownFilePath
	}
	if i.Level == "" {
		i.Level = UnknownLevel
	}
	if i.PatternInfo.Title == "" {
		i.PatternInfo.Title = NoTitle
	}
	if i.Message == "" {
		i.Message = NoMessage
	}

	return nil
}

// MarshalJSON emits the raw server object when available so persisted
// issues are byte-identical to what the API returned.
func (i Issue) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}

	type plain Issue
	return json.Marshal(plain(i))
}

// Severity classifies the issue level.
func (i Issue) Severity() Severity {
	return ParseSeverity(i.Level)
}

// Title returns the pattern title.
func (i Issue) Title() string {
	return i.PatternInfo.Title
}

// Line renders the line number, or "?" when the server omitted it.
func (i Issue) Line() string {
	if i.LineNumber == nil {
		return "?"
	}
	return strconv.Itoa(*i.LineNumber)
}

// Page is one response from the paginated search endpoint: zero or more
// issues in server order plus the opaque cursor for the next page.
// An empty NextCursor means the server reported no further pages.
type Page struct {
	Issues     []Issue
	NextCursor string
}
