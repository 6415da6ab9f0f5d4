// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

const dependsOnAttr = "depends_on"

var gateSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: dependsOnAttr},
		{Name: "min_duration"},
		{Name: "poll_url"},
		{Name: "poll_interval"},
		{Name: "max_wait"},
	},
}

var outputSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value", Required: true},
		{Name: "description"},
	},
}

// translateBlock turns a resource, gate, value or composite block into a
// node declaration.
func translateBlock(ctx context.Context, block *hcl.Block) (node.Declaration, error) {
	logger := ctxlog.FromContext(ctx)

	id, kind, err := blockIdentity(block)
	if err != nil {
		return node.Declaration{}, err
	}
	decl := node.Declaration{ID: id, Kind: kind}
	logger.Debug("Translating block.", "id", id.String(), "kind", kind.String())

	if kind == node.KindGate {
		content, diags := block.Body.Content(gateSchema)
		if diags.HasErrors() {
			return node.Declaration{}, diags
		}
		spec, err := translateGate(content.Attributes)
		if err != nil {
			return node.Declaration{}, fmt.Errorf("gate %q: %w", id.Name, err)
		}
		decl.Gate = spec
		if attr, ok := content.Attributes[dependsOnAttr]; ok {
			if decl.DependsOn, err = translateDependsOn(attr.Expr); err != nil {
				return node.Declaration{}, err
			}
		}
		return decl, nil
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return node.Declaration{}, diags
	}
	decl.Inputs = make(map[string]node.Input, len(attrs))
	for name, attr := range attrs {
		if name == dependsOnAttr {
			if decl.DependsOn, err = translateDependsOn(attr.Expr); err != nil {
				return node.Declaration{}, err
			}
			continue
		}
		in, err := translateInput(attr.Expr)
		if err != nil {
			return node.Declaration{}, fmt.Errorf("%s: attribute %q: %w", id, name, err)
		}
		decl.Inputs[name] = in
	}
	return decl, nil
}

func blockIdentity(block *hcl.Block) (nodeid.ID, node.Kind, error) {
	var (
		id   nodeid.ID
		kind node.Kind
	)
	switch block.Type {
	case "resource":
		id, kind = nodeid.New(block.Labels[0], block.Labels[1]), node.KindOperation
		if nodeid.IsReservedType(id.Type) {
			return id, kind, fmt.Errorf("%s: resource type %q is reserved", block.DefRange, id.Type)
		}
	case nodeid.TypeGate:
		id, kind = nodeid.New(nodeid.TypeGate, block.Labels[0]), node.KindGate
	case nodeid.TypeValue:
		id, kind = nodeid.New(nodeid.TypeValue, block.Labels[0]), node.KindValue
	case nodeid.TypeComposite:
		id, kind = nodeid.New(nodeid.TypeComposite, block.Labels[0]), node.KindComposite
	default:
		return id, kind, fmt.Errorf("%s: unsupported block type %q", block.DefRange, block.Type)
	}
	if err := nodeid.ValidateSegment(id.Type); err != nil {
		return id, kind, fmt.Errorf("%s: %w", block.DefRange, err)
	}
	if err := nodeid.ValidateSegment(id.Name); err != nil {
		return id, kind, fmt.Errorf("%s: %w", block.DefRange, err)
	}
	return id, kind, nil
}

// translateDependsOn reads a list of whole-node references.
func translateDependsOn(expr hcl.Expression) ([]nodeid.ID, error) {
	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	ids := make([]nodeid.ID, 0, len(items))
	for _, item := range items {
		trav, diags := hcl.AbsTraversalForExpr(item)
		if diags.HasErrors() {
			return nil, diags
		}
		ref, rest, err := referenceFor(trav)
		if err != nil {
			return nil, err
		}
		if ref.Key != "" || len(rest) > 0 {
			return nil, fmt.Errorf("%s: depends_on entries must name a node, not an output", item.Range())
		}
		ids = append(ids, ref.Node)
	}
	return ids, nil
}

func translateGate(attrs hcl.Attributes) (*gate.Spec, error) {
	spec := &gate.Spec{}
	durations := map[string]*time.Duration{
		"min_duration":  &spec.MinDuration,
		"poll_interval": &spec.PollInterval,
		"max_wait":      &spec.MaxWait,
	}
	for name, target := range durations {
		attr, ok := attrs[name]
		if !ok {
			continue
		}
		d, err := literalDuration(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		*target = d
	}
	if attr, ok := attrs["poll_url"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.Type() != cty.String || val.IsNull() {
			return nil, fmt.Errorf("poll_url must be a string")
		}
		spec.Poller = gate.NewHTTPPoller(val.AsString())
	}
	return spec, nil
}

// literalDuration accepts a Go duration string ("30s", "2m") or a number of
// seconds.
func literalDuration(expr hcl.Expression) (time.Duration, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() {
		return 0, nil
	}
	switch val.Type() {
	case cty.String:
		d, err := time.ParseDuration(val.AsString())
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, fmt.Errorf("duration must not be negative")
		}
		return d, nil
	case cty.Number:
		secs, _ := val.AsBigFloat().Float64()
		if secs < 0 {
			return 0, fmt.Errorf("duration must not be negative")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("expected a duration string or a number of seconds, got %s", val.Type().FriendlyName())
}

func translateOutput(block *hcl.Block) (node.Output, error) {
	name := block.Labels[0]
	content, diags := block.Body.Content(outputSchema)
	if diags.HasErrors() {
		return node.Output{}, diags
	}
	trav, diags := hcl.AbsTraversalForExpr(content.Attributes["value"].Expr)
	if diags.HasErrors() {
		return node.Output{}, fmt.Errorf("output %q: value must be a reference: %w", name, diags)
	}
	ref, rest, err := referenceFor(trav)
	if err != nil {
		return node.Output{}, fmt.Errorf("output %q: %w", name, err)
	}
	if len(rest) > 0 {
		return node.Output{}, fmt.Errorf("output %q: value must reference a node or one of its outputs", name)
	}
	return node.Output{Name: name, Ref: ref}, nil
}
