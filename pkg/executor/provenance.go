package executor

import (
	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/installed"
	"github.com/pysync/pysync/pkg/planner"
)

// directURLFor derives the direct_url.json payload for a non-registry
// install (§6 "Direct-URL provenance file"); registry installs carry no
// provenance file.
func directURLFor(d planner.Desired) *contracts.DirectURLProvenance {
	switch v := d.Distribution.(type) {
	case *dist.RegistryBuilt, *dist.RegistrySource:
		return nil
	case *dist.DirectUrlBuilt:
		return &contracts.DirectURLProvenance{URL: v.Location.String(), Subdirectory: v.Subdirectory}
	case *dist.DirectUrlSource:
		return &contracts.DirectURLProvenance{URL: v.Location.String(), Subdirectory: v.Subdirectory}
	case *dist.PathBuilt:
		return &contracts.DirectURLProvenance{URL: v.Verbatim.String()}
	case *dist.PathSource:
		return &contracts.DirectURLProvenance{URL: v.Verbatim.String()}
	case *dist.DirectorySource:
		return &contracts.DirectURLProvenance{URL: v.Verbatim.String(), Editable: v.Editable}
	case *dist.GitSource:
		return &contracts.DirectURLProvenance{URL: v.Repo.String(), Subdirectory: v.Subdirectory, VCS: "git", Revision: v.Revision}
	default:
		return nil
	}
}

func writeProvenance(distInfoDir string, p *contracts.DirectURLProvenance) error {
	return installed.WriteDirectURL(distInfoDir, p)
}
