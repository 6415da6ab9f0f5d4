// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/provisiongrid/internal/ctyconv"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

const rootResource = "resource"

// functions are available in every expression of a grid.
var functions = map[string]function.Function{
	"upper":     stdlib.UpperFunc,
	"lower":     stdlib.LowerFunc,
	"join":      stdlib.JoinFunc,
	"split":     stdlib.SplitFunc,
	"format":    stdlib.FormatFunc,
	"replace":   stdlib.ReplaceFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"concat":    stdlib.ConcatFunc,
	"merge":     stdlib.MergeFunc,
	"length":    stdlib.LengthFunc,
	"coalesce":  stdlib.CoalesceFunc,
}

// referenceFor maps a traversal onto the node output it reads. The returned
// rest is whatever the traversal applies beyond the output key.
func referenceFor(t hcl.Traversal) (node.Reference, hcl.Traversal, error) {
	root := t.RootName()
	names := make([]string, 0, 3)
	consumed := 1
	for _, step := range t[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok || len(names) == 3 {
			break
		}
		names = append(names, attr.Name)
		consumed++
	}

	var typ string
	switch {
	case root == rootResource:
		if len(names) < 2 {
			return node.Reference{}, nil, fmt.Errorf("%s: a resource reference needs a type and a name", rangeOf(t))
		}
		typ, names = names[0], names[1:]
	case nodeid.IsReservedType(root):
		typ = root
		if len(names) == 3 {
			names = names[:2]
			consumed--
		}
		if len(names) < 1 {
			return node.Reference{}, nil, fmt.Errorf("%s: a %s reference needs a name", rangeOf(t), root)
		}
	default:
		return node.Reference{}, nil, fmt.Errorf("%s: unsupported reference root %q", rangeOf(t), root)
	}

	ref := node.Reference{Node: nodeid.New(typ, names[0])}
	if len(names) > 1 {
		ref.Key = names[1]
	}
	return ref, t[consumed:], nil
}

func rangeOf(t hcl.Traversal) string {
	r := t.SourceRange()
	return r.String()
}

// translateInput turns an attribute expression into a node input.
func translateInput(expr hcl.Expression) (node.Input, error) {
	vars := expr.Variables()
	if len(vars) == 0 {
		val, diags := expr.Value(&hcl.EvalContext{Functions: functions})
		if diags.HasErrors() {
			return node.Input{}, diags
		}
		native, err := ctyconv.ToNative(val)
		if err != nil {
			return node.Input{}, err
		}
		return node.Literal(native), nil
	}

	if trav, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		ref, rest, err := referenceFor(trav)
		if err != nil {
			return node.Input{}, err
		}
		if len(rest) == 0 {
			return node.Input{Ref: &ref}, nil
		}
	}

	e := &expression{expr: expr}
	seen := make(map[node.Reference]struct{})
	for _, v := range vars {
		ref, _, err := referenceFor(v)
		if err != nil {
			return node.Input{}, err
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		e.refs = append(e.refs, ref)
	}
	return node.Expr(e), nil
}

// expression is an HCL expression evaluated once its references are bound.
type expression struct {
	expr hcl.Expression
	refs []node.Reference
}

var _ node.Expression = (*expression)(nil)

func (e *expression) References() []node.Reference {
	return e.refs
}

func (e *expression) Evaluate(values map[node.Reference]any) (any, error) {
	vars, err := variables(values)
	if err != nil {
		return nil, err
	}
	val, diags := e.expr.Value(&hcl.EvalContext{Variables: vars, Functions: functions})
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyconv.ToNative(val)
}

// variables nests bound values the way references address them:
// resource.<type>.<name>.<key> and <kind>.<name>.<key>.
func variables(values map[node.Reference]any) (map[string]cty.Value, error) {
	// byNode collects, per node, its whole output map and keyed values.
	byNode := make(map[nodeid.ID]map[string]any)
	for ref, v := range values {
		attrs := byNode[ref.Node]
		if attrs == nil {
			attrs = make(map[string]any)
			byNode[ref.Node] = attrs
		}
		if ref.Key == "" {
			if whole, ok := v.(map[string]any); ok {
				for k, wv := range whole {
					if _, set := attrs[k]; !set {
						attrs[k] = wv
					}
				}
			}
			continue
		}
		attrs[ref.Key] = v
	}

	tree := make(map[string]any)
	for id, attrs := range byNode {
		if nodeid.IsReservedType(id.Type) {
			names := subMap(tree, id.Type)
			names[id.Name] = attrs
			continue
		}
		types := subMap(tree, rootResource)
		names := subMap(types, id.Type)
		names[id.Name] = attrs
	}

	vars := make(map[string]cty.Value, len(tree))
	for root, v := range tree {
		cv, err := ctyconv.FromNative(v)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", root, err)
		}
		vars[root] = cv
	}
	return vars, nil
}

func subMap(m map[string]any, key string) map[string]any {
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	sub := make(map[string]any)
	m[key] = sub
	return sub
}
