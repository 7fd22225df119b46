// Package installed implements the installed-distribution side of §3.6:
// reading and writing the dist-info metadata directories the executor's
// link step and uninstall phase operate on, and introspecting a
// site-packages directory into the snapshot the planner (§4.D) consumes.
package installed

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/pkg/contracts"
)

// directURLDoc is the on-disk PEP 610 direct_url.json document. It is
// intentionally decoded into its own nested shape and flattened into
// contracts.DirectURLProvenance, rather than exposing the wire format
// throughout the rest of the pipeline.
type directURLDoc struct {
	URL     string `json:"url"`
	VCSInfo *struct {
		VCS              string `json:"vcs"`
		CommitID         string `json:"commit_id"`
		RequestedVersion string `json:"requested_revision,omitempty"`
	} `json:"vcs_info,omitempty"`
	DirInfo *struct {
		Editable bool `json:"editable,omitempty"`
	} `json:"dir_info,omitempty"`
	ArchiveInfo *struct {
		Hashes map[string]string `json:"hashes,omitempty"`
	} `json:"archive_info,omitempty"`
	Subdirectory string `json:"subdirectory,omitempty"`
}

// ReadDirectURL reads the direct_url.json sidecar from a dist-info
// directory, if present. A missing file is not an error: it means the
// distribution came from a registry.
func ReadDirectURL(distInfoDir string) (*contracts.DirectURLProvenance, error) {
	data, err := os.ReadFile(filepath.Join(distInfoDir, "direct_url.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading direct_url.json in %s", distInfoDir)
	}
	var doc directURLDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding direct_url.json in %s", distInfoDir)
	}
	p := &contracts.DirectURLProvenance{
		URL:          doc.URL,
		Subdirectory: doc.Subdirectory,
	}
	if doc.VCSInfo != nil {
		p.VCS = doc.VCSInfo.VCS
		p.Revision = doc.VCSInfo.CommitID
	}
	if doc.DirInfo != nil {
		p.Editable = doc.DirInfo.Editable
	}
	return p, nil
}

// WriteDirectURL writes the direct_url.json sidecar for a distribution
// installed from a URL or path, matching the shapes pkg/dist's Source
// variants produce. Called by the executor's link step; never by the
// planner or aggregator.
func WriteDirectURL(distInfoDir string, p *contracts.DirectURLProvenance) error {
	doc := directURLDoc{URL: p.URL, Subdirectory: p.Subdirectory}
	if p.VCS != "" {
		doc.VCSInfo = &struct {
			VCS              string `json:"vcs"`
			CommitID         string `json:"commit_id"`
			RequestedVersion string `json:"requested_revision,omitempty"`
		}{VCS: p.VCS, CommitID: p.Revision}
	}
	if p.Editable {
		doc.DirInfo = &struct {
			Editable bool `json:"editable,omitempty"`
		}{Editable: true}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding direct_url.json")
	}
	tmp := filepath.Join(distInfoDir, ".direct_url.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing direct_url.json")
	}
	return errors.Wrap(os.Rename(tmp, filepath.Join(distInfoDir, "direct_url.json")), "renaming direct_url.json into place")
}
