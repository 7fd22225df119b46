// Package report implements §4.F: summarizing one sync's effect on an
// environment as a stably-ordered list of additions and removals.
package report

import (
	"sort"

	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/planner"
)

// EventKind discriminates the two change events a sync can report.
type EventKind int

const (
	Added EventKind = iota
	Removed
)

func (k EventKind) String() string {
	if k == Removed {
		return "-"
	}
	return "+"
}

// Install is one newly-installed distribution, as handed to Build by the
// executor once a unit has completed its fetch/link stages.
type Install struct {
	Name         string
	Version      string
	Distribution dist.Distribution
}

// Entry is one line of a change report.
type Entry struct {
	Kind    EventKind
	Name    string
	Display string // version, or for URL-origin installs, "version (url)".
}

// ChangeSet is the full set of lines a sync produced, ordered by name
// ascending, removals before additions within a name, then by Display
// string. That last key is a plain string comparison, not a version
// comparison, so "10.0" sorts before "9.0".
type ChangeSet struct {
	Entries []Entry
}

// Build assembles a ChangeSet from a plan's removal sets and the
// executor's record of what it actually installed.
func Build(plan *planner.Plan, installed []Install) *ChangeSet {
	var entries []Entry
	for _, inst := range plan.Extraneous {
		entries = append(entries, removalEntry(inst))
	}
	for _, inst := range plan.Reinstalls {
		entries = append(entries, removalEntry(inst))
	}
	for _, in := range installed {
		entries = append(entries, Entry{Kind: Added, Name: in.Name, Display: displayFor(in.Version, in.Distribution)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == Removed // removals before additions.
		}
		return entries[i].Display < entries[j].Display
	})
	return &ChangeSet{Entries: entries}
}

func removalEntry(inst contracts.InstalledDistribution) Entry {
	display := inst.Version
	if inst.DirectURL != nil {
		display = inst.Version + " (" + inst.DirectURL.URL + ")"
	}
	return Entry{Kind: Removed, Name: inst.Name, Display: display}
}

// displayFor renders a newly-installed distribution's version string,
// appending its provenance URL for anything that didn't come from a
// registry (§4.F "carries the provenance URL").
func displayFor(version string, d dist.Distribution) string {
	switch d.(type) {
	case *dist.RegistryBuilt, *dist.RegistrySource, nil:
		return version
	default:
		return version + " (" + d.VerbatimURL() + ")"
	}
}
