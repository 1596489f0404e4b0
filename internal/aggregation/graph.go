package aggregation

import (
	"errors"
	"fmt"
)

// Attribute names a stored or derived value taking part in a recompute.
type Attribute string

const (
	AttrActivityCO2    Attribute = "activity.co2"
	AttrProgramTarget  Attribute = "program.target_co2_reduction"
	AttrGoalTarget     Attribute = "goal.target_co2_reduction"
	AttrToday          Attribute = "clock.today"
	AttrProgramActual  Attribute = "program.actual_co2_reduction"
	AttrProgramCount   Attribute = "program.activity_count"
	AttrProgramPercent Attribute = "program.progress_percentage"
	AttrGoalActual     Attribute = "goal.actual_co2_reduction"
	AttrGoalPercent    Attribute = "goal.achievement_percentage"
	AttrGoalState      Attribute = "goal.state"
	AttrGoalPoints     Attribute = "goal.points_awarded"
)

var ErrCyclicGraph = errors.New("cyclic_dependency_graph")

// Node declares an attribute and the attributes it is computed from.
// Nodes without sources are read from storage or the clock.
type Node struct {
	Attr    Attribute
	Sources []Attribute
}

// Graph is a validated dependency graph with a fixed evaluation order.
type Graph struct {
	deps  map[Attribute][]Attribute
	order []Attribute
}

// DefaultNodes is the derivation graph for programs and goals.
func DefaultNodes() []Node {
	return []Node{
		{Attr: AttrActivityCO2},
		{Attr: AttrProgramTarget},
		{Attr: AttrGoalTarget},
		{Attr: AttrToday},
		{Attr: AttrProgramActual, Sources: []Attribute{AttrActivityCO2}},
		{Attr: AttrProgramCount, Sources: []Attribute{AttrActivityCO2}},
		{Attr: AttrProgramPercent, Sources: []Attribute{AttrProgramActual, AttrProgramTarget}},
		{Attr: AttrGoalActual, Sources: []Attribute{AttrActivityCO2, AttrGoalTarget}},
		{Attr: AttrGoalPercent, Sources: []Attribute{AttrGoalActual, AttrGoalTarget}},
		{Attr: AttrGoalState, Sources: []Attribute{AttrGoalPercent, AttrToday}},
		{Attr: AttrGoalPoints, Sources: []Attribute{AttrGoalState}},
	}
}

func DefaultGraph() *Graph {
	g, err := NewGraph(DefaultNodes())
	if err != nil {
		panic(err)
	}
	return g
}

// NewGraph orders nodes with Kahn's algorithm. Ties keep declaration order.
func NewGraph(nodes []Node) (*Graph, error) {
	deps := make(map[Attribute][]Attribute, len(nodes))
	position := make(map[Attribute]int, len(nodes))
	for i, node := range nodes {
		if _, dup := deps[node.Attr]; dup {
			return nil, fmt.Errorf("duplicate attribute %q", node.Attr)
		}
		deps[node.Attr] = append([]Attribute(nil), node.Sources...)
		position[node.Attr] = i
	}

	indegree := make(map[Attribute]int, len(nodes))
	dependents := make(map[Attribute][]Attribute, len(nodes))
	for _, node := range nodes {
		for _, src := range node.Sources {
			if _, ok := deps[src]; !ok {
				return nil, fmt.Errorf("attribute %q depends on unknown %q", node.Attr, src)
			}
			indegree[node.Attr]++
			dependents[src] = append(dependents[src], node.Attr)
		}
	}

	ready := make([]Attribute, 0, len(nodes))
	for _, node := range nodes {
		if indegree[node.Attr] == 0 {
			ready = append(ready, node.Attr)
		}
	}

	order := make([]Attribute, 0, len(nodes))
	for len(ready) > 0 {
		next := 0
		for i := range ready {
			if position[ready[i]] < position[ready[next]] {
				next = i
			}
		}
		attr := ready[next]
		ready = append(ready[:next], ready[next+1:]...)
		order = append(order, attr)

		for _, dependent := range dependents[attr] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, ErrCyclicGraph
	}
	return &Graph{deps: deps, order: order}, nil
}

// Order returns attributes so every attribute follows its sources.
func (g *Graph) Order() []Attribute {
	return append([]Attribute(nil), g.order...)
}

func (g *Graph) Dependencies(attr Attribute) []Attribute {
	return append([]Attribute(nil), g.deps[attr]...)
}
