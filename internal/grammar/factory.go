package grammar

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	sqlgrammar "github.com/smacker/go-tree-sitter/sql"

	"github.com/Masterminds/semver/v3"

	"github.com/oxhq/sqlls/internal/dialect"
)

// Factory is a dialect selection factory that caches one parser
// instance per compatibility-group family: TiDB and MariaDB share
// the MySQL parser instance, CockroachDB shares the PostgreSQL one.
type Factory struct {
	mu       sync.RWMutex
	language *sitter.Language
	parsers  map[dialect.Family]*sitter.Parser
}

// NewFactory builds a Factory. Construction never fails: grammar
// loading is in-process and synchronous (go-tree-sitter grammars are
// statically linked).
func NewFactory() *Factory {
	return &Factory{
		language: sqlgrammar.GetLanguage(),
		parsers:  make(map[dialect.Family]*sitter.Parser),
	}
}

func (f *Factory) parserFor(fam dialect.Family) *sitter.Parser {
	f.mu.RLock()
	p, ok := f.parsers[fam]
	f.mu.RUnlock()
	if ok {
		return p
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.parsers[fam]; ok {
		return p
	}
	p = sitter.NewParser()
	p.SetLanguage(f.language)
	f.parsers[fam] = p
	return p
}

// Parse performs a fresh parse of text under the given dialect.
// Parsing never fails: malformed input yields a CST with ERROR nodes.
func (f *Factory) Parse(ctx context.Context, d dialect.Dialect, text []byte) (*CST, error) {
	fam := dialect.FamilyOf(d)
	parser := f.parserFor(fam)
	tree, err := parseCtx(ctx, parser, nil, text)
	if err != nil {
		return nil, fmt.Errorf("grammar: parse failed for dialect %s: %w", d, err)
	}
	return &CST{tree: tree, source: text, dialect: d}, nil
}

// Reparse incrementally reparses old under edit, producing new_text's
// CST. The result must be observationally identical to a fresh
// Parse(new_text) up to node identity of unchanged subtrees.
func (f *Factory) Reparse(ctx context.Context, old *CST, edit Edit, newText []byte) (*CST, error) {
	if old == nil || old.tree == nil {
		return f.Parse(ctx, dialect.Unknown, newText)
	}
	old.tree.Edit(sitter.EditInput{
		StartIndex:  edit.StartByte,
		OldEndIndex: edit.OldEndByte,
		NewEndIndex: edit.NewEndByte,
		StartPoint:  sitter.Point{Row: edit.StartPoint.Row, Column: edit.StartPoint.Column},
		OldEndPoint: sitter.Point{Row: edit.OldEndPoint.Row, Column: edit.OldEndPoint.Column},
		NewEndPoint: sitter.Point{Row: edit.NewEndPoint.Row, Column: edit.NewEndPoint.Column},
	})

	fam := dialect.FamilyOf(old.dialect)
	parser := f.parserFor(fam)
	tree, err := parseCtx(ctx, parser, old.tree, newText)
	if err != nil {
		return nil, fmt.Errorf("grammar: reparse failed for dialect %s: %w", old.dialect, err)
	}
	return &CST{tree: tree, source: newText, dialect: old.dialect}, nil
}

// Supports is a pure function of dialect (and version, when
// applicable) over the closed Feature set.
func (f *Factory) Supports(d dialect.Dialect, version *semver.Version, feat dialect.Feature) bool {
	return dialect.Supports(d, version, feat)
}
