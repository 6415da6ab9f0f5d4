// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"time"

	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Op declares an operation node. Inputs may be nil.
func Op(id string, inputs map[string]node.Input, dependsOn ...string) node.Declaration {
	return node.Declaration{
		ID:        nodeid.MustParse(id),
		Kind:      node.KindOperation,
		Inputs:    inputs,
		DependsOn: IDs(dependsOn...),
	}
}

// Gate declares a gate node that waits for min after its predecessors.
func Gate(name string, min time.Duration, dependsOn ...string) node.Declaration {
	return node.Declaration{
		ID:        nodeid.New(nodeid.TypeGate, name),
		Kind:      node.KindGate,
		DependsOn: IDs(dependsOn...),
		Gate:      &gate.Spec{MinDuration: min},
	}
}

// Ref is a reference input to `key` of node id.
func Ref(id, key string) node.Input {
	return node.Ref(nodeid.MustParse(id), key)
}

// IDs parses node ids.
func IDs(raw ...string) []nodeid.ID {
	if len(raw) == 0 {
		return nil
	}
	ids := make([]nodeid.ID, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, nodeid.MustParse(r))
	}
	return ids
}

// Strings renders node ids in their canonical form.
func Strings(ids []nodeid.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// TranslationChain declares the canonical provisioning chain:
// project → service → gate(min) → function → gateway, where the gateway's url
// input references the function's url output.
func TranslationChain(min time.Duration) []node.Declaration {
	return []node.Declaration{
		Op("project.main", map[string]node.Input{"name": node.Literal("langbridge")}),
		Op("service.translate", map[string]node.Input{
			"project": Ref("project.main", "id"),
			"service": node.Literal("translate.googleapis.com"),
		}),
		Gate("propagation", min, "service.translate"),
		Op("cloud_function.tts", map[string]node.Input{
			"project": Ref("project.main", "id"),
			"runtime": node.Literal("nodejs20"),
		}, "gate.propagation"),
		Op("api_gateway.gateway", map[string]node.Input{
			"url": Ref("cloud_function.tts", "url"),
		}),
	}
}
