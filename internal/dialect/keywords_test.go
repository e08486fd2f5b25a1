package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinKeywordsIncludesFullForPostgres(t *testing.T) {
	kws := JoinKeywords(PostgreSQL)
	assert.Contains(t, kws, "FULL")

	kws = JoinKeywords(MySQL)
	assert.NotContains(t, kws, "FULL")
}

func TestOrderByKeywordsNullsOrderingOnlyOnPostgres(t *testing.T) {
	assert.Contains(t, OrderByKeywords(PostgreSQL), "NULLS FIRST")
	assert.NotContains(t, OrderByKeywords(MySQL), "NULLS FIRST")
}

func TestStatementKeywordsCoreSet(t *testing.T) {
	kws := StatementKeywords(MySQL)
	assert.Contains(t, kws, "SELECT")
	assert.Contains(t, kws, "INSERT")
}
