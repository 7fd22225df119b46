package main

import (
	"github.com/pysync/pysync/pkg/reqs"
)

// sourceFlags holds the shared -r/-e/project-manifest flags; its
// requirements method turns them into the Aggregator.FromSources input,
// mirroring uv's own CLI surface.
type sourceFlags struct {
	requirementsFiles []string
	editablePaths     []string
	bareNames         []string
	projectManifest   string
}

func (f sourceFlags) requirements() []reqs.Source {
	var out []reqs.Source
	for _, name := range f.bareNames {
		out = append(out, reqs.Source{Kind: reqs.BareNameSource, Value: name})
	}
	for _, path := range f.editablePaths {
		out = append(out, reqs.Source{Kind: reqs.EditablePathSource, Value: path})
	}
	for _, path := range f.requirementsFiles {
		out = append(out, reqs.Source{Kind: reqs.RequirementsFileSource, Value: path})
	}
	if f.projectManifest != "" {
		out = append(out, reqs.Source{Kind: reqs.ProjectManifestSource, Value: f.projectManifest})
	}
	return out
}
