package ir

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/oxhq/sqlls/internal/grammar"
)

// FallbackKind tells the Completion Engine how to degrade when
// lowering could not produce usable IR.
type FallbackKind int

const (
	FallbackSyntaxBased FallbackKind = iota
	FallbackKeywordsOnly
	FallbackNoCompletion
)

// Outcome is the closed three-way result of lowering a CST subtree.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailed
)

// LoweringError is a structural reason lowering could not proceed.
type LoweringError struct {
	Message string
	Span    Span
}

func (e *LoweringError) Error() string { return e.Message }

// LoweringResult is the three-outcome contract: Success(Stmt) |
// Partial{stmt, unsupported} | Failed{error, fallback}.
type LoweringResult struct {
	Outcome     Outcome
	Stmt        *Stmt          // set for Success and Partial
	Unsupported []Span         // set for Partial
	Err         *LoweringError // set for Failed
	Fallback    FallbackKind   // set for Failed
}

// Diagnostic is the minimal diagnostic shape Lowering emits; the
// diagnostics package wraps these into the wire Diagnostic
// type with severities and codes.
type Diagnostic struct {
	Span    Span
	Code    string // SYNTAX | UNSUPPORTED_FEATURE
	Message string
}

// Lowering converts CST subtrees for one dialect into IR. One
// implementation exists per dialect-compatibility-group, selected at
// runtime through a Registry; dispatch is dynamic only at this
// boundary, never in the inner recursive-descent loop of Lower
// itself.
type Lowering interface {
	// Lower lowers the statement rooted at node. version may be nil
	// when the caller has no dialect_version configured, in which
	// case version-gated features are always treated as unsupported
	// (Partial), never silently accepted.
	Lower(node *grammar.Node, version *semver.Version) LoweringResult

	// Diagnostics returns the diagnostics accumulated by the most
	// recent Lower call (ERROR-node SYNTAX diagnostics plus
	// UNSUPPORTED_FEATURE diagnostics for Unsupported spans).
	Diagnostics() []Diagnostic
}

// Registry dispatches to one Lowering per dialect family.
type Registry struct {
	byFamily map[string]Lowering
}

// NewRegistry builds an empty lowering registry.
func NewRegistry() *Registry {
	return &Registry{byFamily: make(map[string]Lowering)}
}

// Register installs a Lowering implementation under a family key
// (e.g. "mysql", "postgresql"). Re-registering the same key is an
// error.
func (r *Registry) Register(family string, l Lowering) error {
	if family == "" {
		return fmt.Errorf("ir: lowering family must not be empty")
	}
	if _, exists := r.byFamily[family]; exists {
		return fmt.Errorf("ir: lowering for family %q already registered", family)
	}
	r.byFamily[family] = l
	return nil
}

// For returns the Lowering registered for family, or nil.
func (r *Registry) For(family string) Lowering {
	return r.byFamily[family]
}
