// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"container/heap"
	"fmt"

	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
)

// Topology is the read-only view of a graph the scheduler needs.
type Topology interface {
	Nodes() []*node.Node
	DependenciesOf(id nodeid.ID) ([]nodeid.ID, error)
}

// Order returns a creation order in which every node follows all of its
// dependencies. It fails with *CycleError if the graph is not acyclic.
func Order(g Topology) ([]nodeid.ID, error) {
	nodes := g.Nodes()
	deps, err := dependencyTable(g, nodes)
	if err != nil {
		return nil, err
	}
	if cycle := findCycle(nodes, deps); cycle != nil {
		return nil, cycle
	}

	index := make(map[nodeid.ID]int, len(nodes))
	waiting := make(map[nodeid.ID]int, len(nodes))
	dependents := make(map[nodeid.ID][]nodeid.ID, len(nodes))
	for _, n := range nodes {
		index[n.ID()] = n.Index
		waiting[n.ID()] = len(deps[n.ID()])
		for _, d := range deps[n.ID()] {
			dependents[d] = append(dependents[d], n.ID())
		}
	}

	ready := &readyQueue{index: index}
	for _, n := range nodes {
		if waiting[n.ID()] == 0 {
			heap.Push(ready, n.ID())
		}
	}

	order := make([]nodeid.ID, 0, len(nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(nodeid.ID)
		order = append(order, id)
		for _, dep := range dependents[id] {
			waiting[dep]--
			if waiting[dep] == 0 {
				heap.Push(ready, dep)
			}
		}
	}
	if len(order) != len(nodes) {
		return nil, fmt.Errorf("scheduler placed %d of %d nodes", len(order), len(nodes))
	}
	return order, nil
}

// TeardownOrder returns the reverse of Order.
func TeardownOrder(g Topology) ([]nodeid.ID, error) {
	order, err := Order(g)
	if err != nil {
		return nil, err
	}
	reversed := make([]nodeid.ID, len(order))
	for i, id := range order {
		reversed[len(order)-1-i] = id
	}
	return reversed, nil
}

// Levels groups nodes by the length of their longest dependency chain. Nodes
// in the same level never depend on each other and could run in parallel.
func Levels(g Topology) ([][]nodeid.ID, error) {
	order, err := Order(g)
	if err != nil {
		return nil, err
	}
	depth := make(map[nodeid.ID]int, len(order))
	var levels [][]nodeid.ID
	for _, id := range order {
		deps, err := g.DependenciesOf(id)
		if err != nil {
			return nil, err
		}
		d := 0
		for _, dep := range deps {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
		if d == len(levels) {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels, nil
}

func dependencyTable(g Topology, nodes []*node.Node) (map[nodeid.ID][]nodeid.ID, error) {
	deps := make(map[nodeid.ID][]nodeid.ID, len(nodes))
	for _, n := range nodes {
		d, err := g.DependenciesOf(n.ID())
		if err != nil {
			return nil, err
		}
		deps[n.ID()] = d
	}
	return deps, nil
}

type mark int

const (
	unvisited mark = iota
	inProgress
	done
)

// findCycle runs a depth-first search from every node in declaration order,
// following dependencies in declaration order. Reaching a node that is still
// in progress closes a cycle.
func findCycle(nodes []*node.Node, deps map[nodeid.ID][]nodeid.ID) *CycleError {
	marks := make(map[nodeid.ID]mark, len(nodes))
	var path []nodeid.ID

	var visit func(id nodeid.ID) *CycleError
	visit = func(id nodeid.ID) *CycleError {
		marks[id] = inProgress
		path = append(path, id)
		for _, dep := range deps[id] {
			switch marks[dep] {
			case inProgress:
				return cycleFromPath(path, dep)
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		marks[id] = done
		return nil
	}

	for _, n := range nodes {
		if marks[n.ID()] != unvisited {
			continue
		}
		if c := visit(n.ID()); c != nil {
			return c
		}
	}
	return nil
}

// cycleFromPath cuts the cycle starting at `start` out of the DFS path. The
// path runs against the edges (from dependent to dependency), so it is
// reversed to list members in dependency order.
func cycleFromPath(path []nodeid.ID, start nodeid.ID) *CycleError {
	i := len(path) - 1
	for i >= 0 && path[i] != start {
		i--
	}
	loop := path[i:]
	members := make([]nodeid.ID, len(loop))
	for j, id := range loop {
		members[len(loop)-1-j] = id
	}
	return &CycleError{Members: members}
}

// readyQueue is a min-heap of node ids keyed by declaration index.
type readyQueue struct {
	ids   []nodeid.ID
	index map[nodeid.ID]int
}

func (q *readyQueue) Len() int           { return len(q.ids) }
func (q *readyQueue) Less(i, j int) bool { return q.index[q.ids[i]] < q.index[q.ids[j]] }
func (q *readyQueue) Swap(i, j int)      { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *readyQueue) Push(x any)         { q.ids = append(q.ids, x.(nodeid.ID)) }
func (q *readyQueue) Pop() any {
	last := q.ids[len(q.ids)-1]
	q.ids = q.ids[:len(q.ids)-1]
	return last
}
