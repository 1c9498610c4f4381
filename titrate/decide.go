/*
 * decide.go, part of goDMD.
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

package titrate

import (
	"log"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat/combin"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/params"
)

// Defaults for the titration parameters that are not set.
const (
	DefaultBuriedCutoff    = 0.85
	DefaultPartnerDistance = 3.5
)

// disulfide is the S-S distance under which two cysteines are taken as bonded.
const disulfide = 2.5

// group is a titratable group in a structure.
type group struct {
	key        Key
	res        *dmd.Residue
	site       dmd.ProtonationSite
	heavy      []*dmd.Atom // the heteroatoms of the site present in the residue
	protons    map[string]bool
	protonated bool
	pka        float64
	known      bool // the estimator gave a pKa for the group
	buried     float64
	fixed      bool // the state can't change
	next       bool // the new state
}

// findGroups finds the titratable groups in frame, which has PDB names. The first and
// last amino acids of each chain also count as termini.
func findGroups(frame *dmd.Protein) []*group {
	var ret []*group
	add := func(name string, res *dmd.Residue) {
		site, ok := dmd.Site(name)
		if !ok {
			return
		}
		g := &group{key: Key{Group: name, Residue: res.Number, Chain: res.Chain.Name}, res: res, site: site, protons: make(map[string]bool)}
		for _, h := range site.Heteroatoms() {
			if at := res.Atom(h); at != nil {
				g.heavy = append(g.heavy, at)
			}
		}
		if len(g.heavy) == 0 {
			return
		}
		for p := range site.Protons {
			if res.Atom(p) != nil {
				g.protons[p] = true
			}
		}
		g.protonated = len(g.protons) >= site.Full
		ret = append(ret, g)
	}
	for _, c := range frame.Chains {
		var aa []*dmd.Residue
		for _, r := range c.Residues {
			if r.IsAminoAcid() {
				aa = append(aa, r)
			}
		}
		for i, r := range aa {
			if i == 0 {
				add(dmd.NTerminus, r)
			}
			add(r.Name, r)
			if i == len(aa)-1 {
				add(dmd.CTerminus, r)
			}
		}
	}
	return ret
}

// networks groups the titratable groups whose heteroatoms are closer than cutoff.
// Cysteines in a disulfide bridge get their state fixed.
func networks(groups []*group, cutoff float64) [][]*group {
	g := simple.NewUndirectedGraph()
	for i := range groups {
		g.AddNode(simple.Node(i))
	}
	for i, g1 := range groups {
		for j := i + 1; j < len(groups); j++ {
			g2 := groups[j]
			if g1.res == g2.res {
				continue
			}
			for _, a := range g1.heavy {
				for _, b := range g2.heavy {
					d := a.Distance(b)
					if d > cutoff {
						continue
					}
					if a.Element == "s" && b.Element == "s" && d < disulfide {
						g1.fixed, g2.fixed = true, true
					}
					if !g.HasEdgeBetween(int64(i), int64(j)) {
						g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
					}
				}
			}
		}
	}
	var ret [][]*group
	for _, c := range topo.ConnectedComponents(g) {
		ids := make([]int, 0, len(c))
		for _, n := range c {
			ids = append(ids, int(n.ID()))
		}
		sort.Ints(ids)
		net := make([]*group, 0, len(ids))
		for _, id := range ids {
			net = append(net, groups[id])
		}
		ret = append(ret, net)
	}
	sort.Slice(ret, func(i, j int) bool { return less(ret[i][0], ret[j][0]) })
	return ret
}

func less(a, b *group) bool {
	if a.key.Chain != b.key.Chain {
		return a.key.Chain < b.key.Chain
	}
	if a.key.Residue != b.key.Residue {
		return a.key.Residue < b.key.Residue
	}
	return a.key.Group < b.key.Group
}

// Sampler decides new protonation states with a Monte Carlo procedure.
type Sampler struct {
	Titr params.Titration
	Rand *rand.Rand
}

// NewSampler returns a sampler for the titration parameters t, with the
// defaults set for the values missing.
func NewSampler(t params.Titration) *Sampler {
	if t.BuriedCutoff <= 0 {
		t.BuriedCutoff = DefaultBuriedCutoff
	}
	if t.PartnerDistance <= 0 {
		t.PartnerDistance = DefaultPartnerDistance
	}
	return &Sampler{Titr: t, Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// protonationProbability is the probability for a group with the given pKa to be
// protonated at the given pH.
func protonationProbability(pka, ph float64) float64 {
	x := math.Pow(10, pka-ph)
	return x / (1 + x)
}

// Decide returns the protonation changes for frame (which has PDB names) given the
// predictions est. Networks with any group less buried than the cutoff exchange
// protons with the solvent, and each of their groups is protonated with the probability
// given by its pKa and the pH. The other networks keep their number of protons, which
// are distributed among their groups with weights 10^(sum of the pKa values of the
// protonated groups). Groups without a predicted pKa keep their state.
func (S *Sampler) Decide(frame *dmd.Protein, est Estimate) []params.Protonation {
	groups := findGroups(frame)
	for _, g := range groups {
		g.next = g.protonated
		g.pka, g.known = est.PKa[g.key]
		g.buried = est.Buried[g.key]
	}
	for _, net := range networks(groups, S.Titr.PartnerDistance) {
		var active []*group
		solvated := false
		for _, g := range net {
			if g.buried < S.Titr.BuriedCutoff {
				solvated = true
			}
			if g.known && !g.fixed {
				active = append(active, g)
			}
		}
		if len(active) == 0 {
			continue
		}
		if solvated {
			for _, g := range active {
				g.next = S.Rand.Float64() < protonationProbability(g.pka, S.Titr.PH)
			}
			continue
		}
		S.distribute(active)
	}
	var ret []params.Protonation
	for _, g := range groups {
		if g.next == g.protonated {
			continue
		}
		p := params.Protonation{Chain: g.key.Chain, Residue: g.key.Residue, Action: params.Deprotonate}
		if g.next {
			p.Action = params.Protonate
		}
		p.Variant = S.heteroatom(g, g.next)
		ret = append(ret, p)
		log.Printf("Decide: %s %s (pKa %.2f) at %s", p.Action, g.key, g.pka, p.Variant)
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Chain != ret[j].Chain {
			return ret[i].Chain < ret[j].Chain
		}
		return ret[i].Residue < ret[j].Residue
	})
	return ret
}

// distribute places the protons of a closed network among its groups.
func (S *Sampler) distribute(net []*group) {
	k := 0
	for _, g := range net {
		if g.protonated {
			k++
		}
	}
	n := len(net)
	if k == 0 || k == n {
		return
	}
	combs := combin.Combinations(n, k)
	sums := make([]float64, len(combs))
	max := math.Inf(-1)
	for i, c := range combs {
		for _, j := range c {
			sums[i] += net[j].pka
		}
		max = math.Max(max, sums[i])
	}
	//relative to the largest one, so they don't overflow.
	total := 0.0
	for i := range sums {
		sums[i] = math.Pow(10, sums[i]-max)
		total += sums[i]
	}
	roll := S.Rand.Float64() * total
	chosen := len(combs) - 1
	for i, w := range sums {
		if roll < w {
			chosen = i
			break
		}
		roll -= w
	}
	for _, g := range net {
		g.next = false
	}
	for _, j := range combs[chosen] {
		net[j].next = true
	}
}

// heteroatom picks the heteroatom of g that gains a proton (if protonate) or loses one.
func (S *Sampler) heteroatom(g *group, protonate bool) string {
	var candidates []string
	for _, at := range g.heavy {
		carried, free := 0, 0
		for p, h := range g.site.Protons {
			if h != at.Name {
				continue
			}
			if g.protons[p] {
				carried++
			} else {
				free++
			}
		}
		if (protonate && free > 0) || (!protonate && carried > 0) {
			candidates = append(candidates, at.Name)
		}
	}
	if len(candidates) == 0 {
		return g.site.Default(protonate)
	}
	return candidates[S.Rand.Intn(len(candidates))]
}
