package query

import (
	"strings"
)

// subPlan is a sub-select prepared for one outer SELECT. A correlated
// sub-select has its outer references rewritten to bind variables
// base, base+1, ... which are bound per outer row.
type subPlan struct {
	template *Select
	refs     []*TableField
	base     int
}

type planKey struct {
	stmt   *Select
	fields *TableFields
}

// runSubquery executes a sub-select for the current outer row. Results of
// sub-selects without outer references are computed once per execution.
func (ex *executor) runSubquery(stmt *Select, env *evalEnv) (*resultSet, error) {
	key := planKey{stmt: stmt, fields: env.fields}
	plan, ok := ex.plans[key]
	if !ok {
		plan = ex.planSubquery(stmt, env.fields)
		ex.plans[key] = plan
	}

	if len(plan.refs) == 0 {
		if rs, ok := ex.results[stmt]; ok {
			return rs, nil
		}
		rs, err := ex.child(ex.binds.Clone()).executeStatement(stmt)
		if err != nil {
			return nil, err
		}
		ex.results[stmt] = rs
		return rs, nil
	}

	binds := ex.binds.Clone()
	for k, f := range plan.refs {
		binds.Set(plan.base+k, env.valueOf(f))
	}
	return ex.child(binds).executeStatement(plan.template)
}

// planSubquery finds the WHERE references of stmt that resolve only in the
// outer directory and rewrites them to bind variables.
func (ex *executor) planSubquery(stmt *Select, outer *TableFields) *subPlan {
	plan := &subPlan{template: stmt, base: ex.binds.Len() + 1}
	if stmt.Where == nil || outer == nil {
		return plan
	}

	inner := ex.innerScope(stmt)
	index := make(map[*TableField]int)
	bindFor := func(name string) (int, bool) {
		if inner.resolves(name) {
			return 0, false
		}
		f := outer.lookup(name)
		if f == nil {
			return 0, false
		}
		k, seen := index[f]
		if !seen {
			k = len(plan.refs)
			index[f] = k
			plan.refs = append(plan.refs, f)
		}
		return plan.base + k, true
	}

	where := ex.rewriteCondition(stmt.Where, bindFor)
	if len(plan.refs) > 0 {
		template := *stmt
		template.Where = where
		plan.template = &template
	}
	return plan
}

// innerScope describes the tables a sub-select reads itself.
type innerScope struct {
	names   map[string]bool
	schemas []*Schema
	opaque  bool
}

func (ex *executor) innerScope(stmt *Select) *innerScope {
	scope := &innerScope{names: make(map[string]bool)}
	refs := make([]*TableRef, 0, len(stmt.Joins)+1)
	if stmt.From != nil {
		refs = append(refs, stmt.From)
	}
	for i := range stmt.Joins {
		refs = append(refs, &stmt.Joins[i].Source)
	}
	for _, ref := range refs {
		scope.names[ref.Table] = true
		if ref.Alias != "" {
			scope.names[ref.Alias] = true
		}
		if ref.Sub != nil {
			scope.opaque = true
			continue
		}
		if t, ok := ex.tables[ref.Table]; ok {
			scope.schemas = append(scope.schemas, t.Schema())
		}
	}
	return scope
}

// resolves reports whether a column reference belongs to the sub-select's
// own tables. Qualified names are decided by their qualifier.
func (s *innerScope) resolves(name string) bool {
	norm := normalizeName(name)
	if dot := strings.LastIndexByte(norm, '.'); dot > 0 {
		return s.names[norm[:dot]]
	}
	if s.opaque {
		return true
	}
	for _, schema := range s.schemas {
		if _, ok := schema.Column(norm); ok {
			return true
		}
	}
	return false
}

// rewriteCondition copies cond, replacing column references for which
// bindFor returns an index with bind variables. Nested sub-selects are
// rewritten too; names their own tables answer to are left alone.
func (ex *executor) rewriteCondition(cond Condition, bindFor func(string) (int, bool)) Condition {
	switch c := cond.(type) {
	case *Logic:
		out := &Logic{Op: c.Op, Terms: make([]Condition, len(c.Terms))}
		for i, term := range c.Terms {
			out.Terms[i] = ex.rewriteCondition(term, bindFor)
		}
		return out
	case *Leaf:
		return &Leaf{
			Op:    c.Op,
			Left:  ex.rewriteOperand(c.Left, bindFor),
			Right: ex.rewriteOperand(c.Right, bindFor),
		}
	}
	return cond
}

func (ex *executor) rewriteOperand(op Operand, bindFor func(string) (int, bool)) Operand {
	switch o := op.(type) {
	case ColumnRef:
		if n, ok := bindFor(o.Name); ok {
			return BindRef{Index: n}
		}
	case Calculated:
		return Calculated{Expr: ex.rewriteText(o.Expr, bindFor)}
	case ValueList:
		out := ValueList{Items: make([]Operand, len(o.Items))}
		for i, item := range o.Items {
			out.Items[i] = ex.rewriteOperand(item, bindFor)
		}
		return out
	case SubQuery:
		return SubQuery{Stmt: ex.rewriteNested(o.Stmt, bindFor)}
	}
	return op
}

// rewriteNested returns a copy of a sub-select whose WHERE has the outer
// references bound. The original is returned when nothing changes.
func (ex *executor) rewriteNested(stmt *Select, bindFor func(string) (int, bool)) *Select {
	if stmt.Where == nil {
		return stmt
	}
	scope := ex.innerScope(stmt)
	changed := false
	nested := func(name string) (int, bool) {
		if scope.resolves(name) {
			return 0, false
		}
		n, ok := bindFor(name)
		changed = changed || ok
		return n, ok
	}
	where := ex.rewriteCondition(stmt.Where, nested)
	if !changed {
		return stmt
	}
	out := *stmt
	out.Where = where
	return &out
}

// rewriteText replaces column words in expression text with ?N. A
// parenthesized SELECT is rewritten against its own tables.
func (ex *executor) rewriteText(text string, bindFor func(string) (int, bool)) string {
	tokens, err := Tokenize(text)
	if err != nil {
		return text
	}
	var b strings.Builder
	last := 0
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Type == TokenLeftParen && i+1 < len(tokens) && tokens[i+1].is("SELECT") {
			end := matchParen(tokens, i)
			if end < 0 {
				break
			}
			inner := text[tokens[i+1].Pos:tokens[end].Pos]
			if sub, err := Parse(inner); err == nil {
				if rewritten := ex.rewriteNested(sub, bindFor); rewritten != sub {
					b.WriteString(text[last:tokens[i+1].Pos])
					b.WriteString(rewritten.String())
					last = tokens[end].Pos
				}
			}
			i = end
			continue
		}
		if t.Type != TokenWord || (!t.Quoted && isKeyword(t.Value)) {
			continue
		}
		if i+1 < len(tokens) && tokens[i+1].Type == TokenLeftParen && !t.Quoted {
			continue // function name
		}
		n, ok := bindFor(t.Value)
		if !ok {
			continue
		}
		b.WriteString(text[last:t.Pos])
		b.WriteString(BindRef{Index: n}.String())
		last = t.End
	}
	b.WriteString(text[last:])
	return b.String()
}
