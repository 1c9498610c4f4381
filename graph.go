/*
 * graph.go, part of goDMD.
 *
 *
 * Copyright 2024 The goDMD authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package dmd

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// BondGraph is an undirected graph with the given atoms as nodes and their
// bonds as edges. Bonds to atoms outside the set are ignored.
type BondGraph struct {
	g     *simple.UndirectedGraph
	atoms []*Atom
	ids   map[*Atom]int64
}

// NewBondGraph builds the graph for atoms, which need to have their bonds assigned.
func NewBondGraph(atoms []*Atom) *BondGraph {
	B := &BondGraph{g: simple.NewUndirectedGraph(), atoms: atoms, ids: make(map[*Atom]int64, len(atoms))}
	for i, at := range atoms {
		B.ids[at] = int64(i)
		B.g.AddNode(simple.Node(i))
	}
	for i, at := range atoms {
		for _, b := range at.Bonds {
			j, ok := B.ids[b]
			if !ok || j == int64(i) || B.g.HasEdgeBetween(int64(i), j) {
				continue
			}
			B.g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
		}
	}
	return B
}

// Neighbors returns the atoms at most depth bonds away from at, not including at,
// closest first. It returns nil if at is not in the graph.
func (B *BondGraph) Neighbors(at *Atom, depth int) []*Atom {
	id, ok := B.ids[at]
	if !ok {
		return nil
	}
	var ret []*Atom
	var bf traverse.BreadthFirst
	bf.Walk(B.g, B.g.Node(id), func(n graph.Node, d int) bool {
		if d > depth {
			return true
		}
		if n.ID() != id {
			ret = append(ret, B.atoms[n.ID()])
		}
		return false
	})
	return ret
}

// Fragments returns the sets of atoms connected by bonds, each in the
// order the atoms were given.
func (B *BondGraph) Fragments() [][]*Atom {
	cc := topo.ConnectedComponents(B.g)
	ret := make([][]*Atom, 0, len(cc))
	for _, c := range cc {
		ids := make([]int, 0, len(c))
		for _, n := range c {
			ids = append(ids, int(n.ID()))
		}
		sort.Ints(ids)
		frag := make([]*Atom, 0, len(ids))
		for _, i := range ids {
			frag = append(frag, B.atoms[i])
		}
		ret = append(ret, frag)
	}
	sort.Slice(ret, func(i, j int) bool { return B.ids[ret[i][0]] < B.ids[ret[j][0]] })
	return ret
}
