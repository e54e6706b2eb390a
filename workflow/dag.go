package workflow

const (
	rootNodeID = "root"
	tailNodeID = "tail"
)

// Node is one vertex of the workflow graph: a job plus its resolved parent
// and child edges. The synthetic root and tail nodes wrap a Job whose Steps
// hold the promoted setup/teardown scripts.
type Node struct {
	ID       string
	Job      *Job
	Parents  map[string]*Node
	Children map[string]*Node
}

func newNode(id string, job *Job) *Node {
	return &Node{ID: id, Job: job, Parents: map[string]*Node{}, Children: map[string]*Node{}}
}

func addEdge(parent, child *Node) {
	parent.Children[child.ID] = child
	child.Parents[parent.ID] = parent
}

// Graph is the built, validated workflow DAG: every declared job plus the
// synthetic root and tail nodes that bound it, per spec §4.1. It also keeps
// a copy of the source Workflow's declared-but-unenforced metadata so it
// can be surfaced later (spec §1 Non-goals: "permissions are stored and
// surfaced, not enforced").
type Graph struct {
	Nodes map[string]*Node
	Root  *Node
	Tail  *Node
	// Order lists job ids (excluding root/tail) in declaration order, so
	// the snapshot projector can present jobs deterministically despite
	// Nodes being a map.
	Order []string

	Permissions  []Permission
	Environment  map[string]string
	GlobalConfig GlobalConfig
}

// BuildGraph constructs and validates the DAG for a workflow: it synthesizes
// root/tail nodes, wires declared `needs` edges, attaches every
// dependency-free job to root and every childless job to tail, promotes the
// workflow's setup/teardown lifecycle events into root/tail's step lists,
// and rejects duplicate ids, dangling dependencies, and cycles (spec §4.1).
func BuildGraph(wf *Workflow) (*Graph, error) {
	root := newNode(rootNodeID, &Job{ID: rootNodeID, Name: "root"})
	tail := newNode(tailNodeID, &Job{ID: tailNodeID, Name: "tail"})

	for _, le := range wf.Setup() {
		root.Job.Steps = append(root.Job.Steps, &Step{ID: le.ID, Name: le.ID, Script: le.Script.Clone(le.ID)})
	}
	for _, le := range wf.Teardown() {
		tail.Job.Steps = append(tail.Job.Steps, &Step{ID: le.ID, Name: le.ID, Script: le.Script.Clone(le.ID)})
	}

	g := &Graph{
		Nodes:        map[string]*Node{rootNodeID: root, tailNodeID: tail},
		Root:         root,
		Tail:         tail,
		Permissions:  wf.Permissions,
		Environment:  wf.Environment,
		GlobalConfig: wf.GlobalConfig,
	}

	for _, j := range wf.Jobs {
		if j.ID == rootNodeID || j.ID == tailNodeID {
			return nil, errDuplicateNode(j.ID)
		}
		if _, exists := g.Nodes[j.ID]; exists {
			return nil, errDuplicateNode(j.ID)
		}
		g.Nodes[j.ID] = newNode(j.ID, j)
		g.Order = append(g.Order, j.ID)
	}

	for _, j := range wf.Jobs {
		node := g.Nodes[j.ID]
		for _, dep := range j.Needs {
			depNode, ok := g.Nodes[dep]
			if !ok || dep == rootNodeID || dep == tailNodeID {
				return nil, errMissingDependency(j.ID, dep)
			}
			addEdge(depNode, node)
		}
		if len(j.Needs) == 0 {
			addEdge(root, node)
		}
	}

	for id, node := range g.Nodes {
		if id == rootNodeID || id == tailNodeID {
			continue
		}
		if len(node.Children) == 0 {
			addEdge(node, tail)
		}
	}
	if len(root.Children) == 0 {
		addEdge(root, tail)
	}

	if cycle, ok := detectCycle(g.Nodes); ok {
		return nil, errCyclicDependency(cycle)
	}

	return g, nil
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// detectCycle runs a recursive DFS over every job node (root and tail are
// excluded: they cannot participate in a cycle by construction) and reports
// the first back-edge path it finds.
func detectCycle(nodes map[string]*Node) ([]string, bool) {
	colors := make(map[string]color, len(nodes))
	for id := range nodes {
		colors[id] = white
	}

	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = gray
		path = append(path, id)
		node := nodes[id]
		for childID := range node.Children {
			if childID == rootNodeID || childID == tailNodeID {
				continue
			}
			switch colors[childID] {
			case white:
				if cyc := visit(childID); cyc != nil {
					return cyc
				}
			case gray:
				cycleStart := 0
				for i, p := range path {
					if p == childID {
						cycleStart = i
						break
					}
				}
				cyc := append([]string{}, path[cycleStart:]...)
				cyc = append(cyc, childID)
				return cyc
			}
		}
		colors[id] = black
		path = path[:len(path)-1]
		return nil
	}

	for id := range nodes {
		if id == rootNodeID || id == tailNodeID {
			continue
		}
		if colors[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc, true
			}
		}
	}
	return nil, false
}
