// Package lspmodel defines the wire-format types exchanged with an
// editor client: positions, completion
// items, hover, and diagnostics. These are plain data — transport
// (JSON-RPC framing, stdio/socket plumbing) is explicitly out of
// scope and lives outside this module.
package lspmodel

// Position is a zero-based LSP position; Character counts UTF-16
// code units in the full LSP spec, approximated here as raw byte
// offsets within the line (see internal/document's buffer for the
// documented limitation).
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open LSP range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// CompletionItemKind mirrors the numeric LSP CompletionItemKind enum.
type CompletionItemKind int

const (
	KindText     CompletionItemKind = 1
	KindFunction CompletionItemKind = 3
	KindField    CompletionItemKind = 5
	KindVariable CompletionItemKind = 6
	KindKeyword  CompletionItemKind = 14
	KindConstant CompletionItemKind = 21
	KindStruct   CompletionItemKind = 22 // used for base/synthetic tables
	KindOperator CompletionItemKind = 24
)

// CompletionItem is one candidate rendered for the client.
type CompletionItem struct {
	Label         string             `json:"label"`
	Kind          CompletionItemKind `json:"kind"`
	Detail        string             `json:"detail,omitempty"`
	Documentation string             `json:"documentation,omitempty"`
	InsertText    string             `json:"insertText,omitempty"`
	SortText      string             `json:"sortText,omitempty"`
}

// CompletionList is the full result of a completion query.
type CompletionList struct {
	Items        []CompletionItem `json:"items"`
	IsIncomplete bool             `json:"isIncomplete"`
}

// Hover is the result of a hover query; Range is the span the hover
// applies to.
type Hover struct {
	Range    Range  `json:"range"`
	Markdown string `json:"markdown"`
}

// Severity is the closed diagnostic severity set.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// RelatedInformation attaches a secondary span to a diagnostic (used
// for AMBIGUOUS_COLUMN's "spans of both tables").
type RelatedInformation struct {
	Range   Range  `json:"range"`
	Message string `json:"message"`
}

// Diagnostic is the wire format for one finding. Code is one of the
// closed set SYNTAX, UNDEFINED_TABLE, UNDEFINED_COLUMN,
// AMBIGUOUS_COLUMN, AMBIGUOUS_TABLE, UNSUPPORTED_FEATURE.
type Diagnostic struct {
	Range    Range                `json:"range"`
	Severity Severity             `json:"severity"`
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	Related  []RelatedInformation `json:"relatedInformation,omitempty"`
}
