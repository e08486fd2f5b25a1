// Package completion implements the completion pipeline: from a
// document position through context detection, scope lookup, alias
// resolution, and catalog queries to a rendered CompletionList.
package completion

import (
	"context"
	"fmt"

	cctx "github.com/oxhq/sqlls/internal/context"
	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/model"
	"github.com/oxhq/sqlls/internal/resolve"
)

// DefaultBudget caps the number of items returned per request;
// truncation is reported through CompletionList.IsIncomplete.
const DefaultBudget = 500

// Engine renders completions for documents owned by a Store.
type Engine struct {
	store  *document.Store
	fold   resolve.FoldingRule
	budget int
}

// NewEngine builds a completion Engine over store. fold selects the
// identifier case-folding rule, a configurable engine property
// rather than a per-dialect constant.
func NewEngine(store *document.Store, fold resolve.FoldingRule) *Engine {
	return &Engine{store: store, fold: fold, budget: DefaultBudget}
}

// Complete implements complete(document, position) -> [CompletionItem].
func (e *Engine) Complete(ctx context.Context, uri string, pos lspmodel.Position) (lspmodel.CompletionList, error) {
	doc, err := e.store.Get(uri)
	if err != nil {
		return lspmodel.CompletionList{}, err
	}

	cst := doc.CST()
	offset := doc.ByteOffset(pos.Line, pos.Character)
	detected := cctx.Detect(cst, offset)
	if err := ctx.Err(); err != nil {
		return lspmodel.CompletionList{}, fmt.Errorf("completion: %w", model.ErrCancelled)
	}

	lowering, scopeTree, _, err := doc.Rebuild(ctx)
	if err != nil {
		return lspmodel.CompletionList{}, fmt.Errorf("completion: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return lspmodel.CompletionList{}, fmt.Errorf("completion: %w", model.ErrCancelled)
	}

	// A Failed lowering carries the fallback the engine must degrade
	// to: keyword-only completion, nothing at all, or syntax-based
	// (keep the detected context and whatever scope survived). The
	// keyword fallback defers to the Context Detector when it managed
	// to classify the position from the raw CST alone.
	if lowering.Outcome == ir.OutcomeFailed {
		switch lowering.Fallback {
		case ir.FallbackNoCompletion:
			return lspmodel.CompletionList{}, nil
		case ir.FallbackKeywordsOnly:
			if detected.Kind == cctx.None {
				detected = cctx.Context{Kind: cctx.KeywordOnly}
			}
		}
	}

	scopeID := scopeTree.ScopeAt(offset)
	prefix := computePrefix(doc.Text(), offset)

	cands := generate(ctx, detected, scopeTree, scopeID, doc.Dialect(), doc.Catalog(), doc.SchemaFilter(), e.fold)
	if err := ctx.Err(); err != nil {
		return lspmodel.CompletionList{}, fmt.Errorf("completion: %w", model.ErrCancelled)
	}
	cands = filterByPrefix(cands, prefix, e.fold)
	cands = dedupe(cands)
	rank(cands, prefix)

	incomplete := false
	if len(cands) > e.budget {
		cands = cands[:e.budget]
		incomplete = true
	}

	return lspmodel.CompletionList{Items: render(cands, prefix), IsIncomplete: incomplete}, nil
}

// computePrefix scans left from offset collecting identifier bytes
// up to the first non-identifier byte; case is preserved for
// matching.
func computePrefix(text []byte, offset uint32) string {
	end := int(offset)
	if end > len(text) {
		end = len(text)
	}
	start := end
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	return string(text[start:end])
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func render(cands []candidate, prefix string) []lspmodel.CompletionItem {
	out := make([]lspmodel.CompletionItem, 0, len(cands))
	for i, c := range cands {
		item := lspmodel.CompletionItem{
			Label:         c.label,
			Kind:          c.kind,
			Detail:        c.detail,
			Documentation: c.doc,
			InsertText:    c.insertText,
			SortText:      fmt.Sprintf("%05d", i),
		}
		if item.InsertText == "" {
			item.InsertText = item.Label
		}
		out = append(out, item)
	}
	return out
}
