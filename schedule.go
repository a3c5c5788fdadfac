package dtransform

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrScheduleCycle    = errors.New("dtransform: pass ordering has a cycle")
	ErrUnknownPass      = errors.New("dtransform: unknown pass")
	ErrDuplicatePass    = errors.New("dtransform: duplicate pass")
	ErrScheduleNotBuilt = errors.New("dtransform: schedule is not built")
)

type pass struct {
	id   int64
	name string
	run  func()
}

// Schedule orders passes as the nodes of a directed acyclic graph.
// The graph is resolved once by Build, into stages that run one after the other.
// Passes of a stage run concurrently, they are all declared ambiguous with each other.
type Schedule struct {
	graph     *simple.DirectedGraph
	passes    map[int64]*pass
	names     map[string]int64
	ambiguous map[[2]int64]bool

	stages [][]*pass
}

func NewSchedule() *Schedule {
	return &Schedule{
		graph:     simple.NewDirectedGraph(),
		passes:    make(map[int64]*pass),
		names:     make(map[string]int64),
		ambiguous: make(map[[2]int64]bool),
	}
}

// Add registers a pass, Build must be called again afterwards
func (s *Schedule) Add(name string, run func()) error {
	if _, ok := s.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePass, name)
	}
	node := s.graph.NewNode()
	s.graph.AddNode(node)
	s.passes[node.ID()] = &pass{id: node.ID(), name: name, run: run}
	s.names[name] = node.ID()
	s.stages = nil
	return nil
}

// Before declares that pass a must fully complete before pass b starts
func (s *Schedule) Before(a, b string) error {
	from, to, err := s.pair(a, b)
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: %s runs before itself", ErrScheduleCycle, a)
	}
	s.graph.SetEdge(s.graph.NewEdge(simple.Node(from), simple.Node(to)))
	s.stages = nil
	return nil
}

// AmbiguousWith declares that passes a and b touch disjoint data and may run concurrently
func (s *Schedule) AmbiguousWith(a, b string) error {
	x, y, err := s.pair(a, b)
	if err != nil {
		return err
	}
	s.ambiguous[[2]int64{x, y}] = true
	s.ambiguous[[2]int64{y, x}] = true
	s.stages = nil
	return nil
}

func (s *Schedule) pair(a, b string) (int64, int64, error) {
	x, ok := s.names[a]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownPass, a)
	}
	y, ok := s.names[b]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownPass, b)
	}
	return x, y, nil
}

// Build sorts the passes topologically and groups them into stages.
// A pass lands in the first stage after all of its predecessors; passes sharing a level
// that are not ambiguous with each other are split into consecutive stages.
func (s *Schedule) Build() error {
	sorted, err := topo.SortStabilized(s.graph, byID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScheduleCycle, err)
	}

	level := make(map[int64]int, len(sorted))
	var levels [][]*pass
	for _, node := range sorted {
		l := 0
		for _, pred := range graph.NodesOf(s.graph.To(node.ID())) {
			l = max(l, level[pred.ID()]+1)
		}
		level[node.ID()] = l
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], s.passes[node.ID()])
	}

	s.stages = make([][]*pass, 0, len(levels))
	for _, passes := range levels {
		slices.SortFunc(passes, func(a, b *pass) int {
			return cmp.Compare(a.id, b.id)
		})
		var groups [][]*pass
		for _, p := range passes {
			placed := false
			for i, group := range groups {
				if s.compatible(p, group) {
					groups[i] = append(group, p)
					placed = true
					break
				}
			}
			if !placed {
				groups = append(groups, []*pass{p})
			}
		}
		s.stages = append(s.stages, groups...)
	}
	return nil
}

func (s *Schedule) compatible(p *pass, group []*pass) bool {
	for _, other := range group {
		if !s.ambiguous[[2]int64{p.id, other.id}] {
			return false
		}
	}
	return true
}

// Stages returns the pass names, stage by stage
func (s *Schedule) Stages() [][]string {
	out := make([][]string, 0, len(s.stages))
	for _, stage := range s.stages {
		names := make([]string, 0, len(stage))
		for _, p := range stage {
			names = append(names, p.name)
		}
		out = append(out, names)
	}
	return out
}

// Run executes every stage in order. With more than one worker, the passes of a stage run concurrently.
func (s *Schedule) Run(workers int) error {
	if s.stages == nil {
		return ErrScheduleNotBuilt
	}
	for _, stage := range s.stages {
		if workers <= 1 || len(stage) == 1 {
			for _, p := range stage {
				p.run()
			}
			continue
		}

		var wg sync.WaitGroup
		for _, p := range stage {
			wg.Add(1)
			go func(p *pass) {
				defer wg.Done()
				p.run()
			}(p)
		}
		wg.Wait()
	}
	return nil
}

func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		return cmp.Compare(a.ID(), b.ID())
	})
}
