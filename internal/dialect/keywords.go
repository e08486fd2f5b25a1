package dialect

// StatementKeywords returns the statement-initial keywords offered at
// KeywordOnly completion positions.
func StatementKeywords(d Dialect) []string {
	base := []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "CREATE"}
	if FamilyOf(d) == FamilyPostgreSQL {
		return append(base, "EXPLAIN")
	}
	return base
}

// JoinKeywords returns the join-introducing keywords offered at
// FromTable/JoinTable completion positions.
func JoinKeywords(d Dialect) []string {
	kws := []string{"JOIN", "INNER", "LEFT", "RIGHT", "CROSS"}
	if Supports(d, nil, FeatureFullOuterJoin) || FamilyOf(d) == FamilyPostgreSQL {
		kws = append(kws, "FULL")
	}
	return kws
}

// OrderByKeywords returns ordering modifiers offered at OrderByColumn
// completion positions, gated by dialect support for NULLS FIRST/LAST.
func OrderByKeywords(d Dialect) []string {
	kws := []string{"ASC", "DESC"}
	if FamilyOf(d) == FamilyPostgreSQL {
		kws = append(kws, "NULLS FIRST", "NULLS LAST")
	}
	return kws
}

// AggregateFunctions returns the built-in aggregate/window function
// names offered at SelectProjection completion positions.
func AggregateFunctions(d Dialect) []string {
	fns := []string{"COUNT", "SUM", "AVG", "MIN", "MAX"}
	if Supports(d, nil, FeatureWindowFunctions) {
		fns = append(fns, "ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD")
	}
	return fns
}
