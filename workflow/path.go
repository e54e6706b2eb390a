package workflow

import (
	"regexp"
	"strconv"
)

// pathPattern implements the dotted-path grammar from spec §4.8:
//
//	jobs[<index>]                        -> a job
//	jobs.<id>                            -> a job
//	jobs[<index>].steps[<index>]         -> a step
//	jobs[<index>].steps.<id>             -> a step
//	jobs.<id>.steps[<index>]             -> a step
//	jobs.<id>.steps.<id>                 -> a step
//	...(job or step selector).results    -> a result log
//	...(job or step selector).formData   -> the last accepted form data
var pathPattern = regexp.MustCompile(
	`^jobs(?:\[(\d+)\]|\.([^.\[]+))` +
		`(?:\.steps(?:\[(\d+)\]|\.([^.\[]+)))?` +
		`(?:\.(results|formData))?$`,
)

// PathResult is the resolved target of a Lookup call: exactly one of Job or
// Step is set, selected by whichever selector terminated the path, and
// Trailer names which projection of it (if any) was requested. When Trailer
// is "formData", FormData holds the value itself (spec §4.8: "the last
// accepted form map, empty until one is provided").
type PathResult struct {
	Job      *Job
	Step     *Step
	Trailer  string // "", "results", or "formData"
	FormData map[string]any
}

// Lookup resolves path against the graph's current job set. Root and tail
// are not addressable: "jobs.root" and "jobs.tail" are rejected as
// InvalidPath, and indices range over the declared jobs only.
func Lookup(g *Graph, path string) (*PathResult, error) {
	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil, errInvalidPath(path)
	}
	jobIdx, jobID, stepIdx, stepID, trailer := m[1], m[2], m[3], m[4], m[5]

	job, err := resolveJob(g, jobIdx, jobID, path)
	if err != nil {
		return nil, err
	}

	if stepIdx == "" && stepID == "" {
		res := &PathResult{Job: job, Trailer: trailer}
		if trailer == "formData" {
			res.FormData = job.FormData()
		}
		return res, nil
	}

	step, err := resolveStep(job, stepIdx, stepID, path)
	if err != nil {
		return nil, err
	}
	res := &PathResult{Step: step, Trailer: trailer}
	if trailer == "formData" {
		res.FormData = step.FormData()
	}
	return res, nil
}

func resolveJob(g *Graph, idx, id, path string) (*Job, error) {
	if idx != "" {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(g.Order) {
			return nil, errInvalidPath(path)
		}
		return g.Nodes[g.Order[i]].Job, nil
	}
	node, ok := g.Nodes[id]
	if !ok || id == rootNodeID || id == tailNodeID {
		return nil, errInvalidPath(path)
	}
	return node.Job, nil
}

func resolveStep(job *Job, idx, id, path string) (*Step, error) {
	if idx != "" {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(job.Steps) {
			return nil, errInvalidPath(path)
		}
		return job.Steps[i], nil
	}
	for _, st := range job.Steps {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, errInvalidPath(path)
}
