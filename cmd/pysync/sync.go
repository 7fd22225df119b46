package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/executor"
	"github.com/pysync/pysync/pkg/installed"
	"github.com/pysync/pysync/pkg/planner"
	"github.com/pysync/pysync/pkg/registry"
	"github.com/pysync/pysync/pkg/report"
)

var syncFlags struct {
	sourceFlags
	envRoot       string
	indexURL      string
	requireHashes bool
	strict        bool
	concurrency   int
	configPath    string
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize an environment to match a declared requirement set",
	RunE: func(cmd *cobra.Command, args []string) error {
		syncFlags.bareNames = args
		return runSync(cmd)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringArrayVarP(&syncFlags.requirementsFiles, "requirement", "r", nil, "requirements file to read")
	syncCmd.Flags().StringArrayVarP(&syncFlags.editablePaths, "editable", "e", nil, "editable local project to install")
	syncCmd.Flags().StringVar(&syncFlags.projectManifest, "project", "", "path to a pyproject.toml to aggregate")
	syncCmd.Flags().StringVar(&syncFlags.envRoot, "env", "", "target environment root (site-packages)")
	syncCmd.Flags().StringVar(&syncFlags.indexURL, "index-url", "https://pypi.org/simple", "base index URL for pinned resolution")
	syncCmd.Flags().BoolVar(&syncFlags.requireHashes, "require-hashes", false, "fail closed unless every requirement carries a hash")
	syncCmd.Flags().BoolVar(&syncFlags.strict, "strict", false, "remove every unmatched installed distribution")
	syncCmd.Flags().IntVar(&syncFlags.concurrency, "concurrency", 0, "max concurrent fetches (0 = NumCPU)")
	syncCmd.Flags().StringVar(&syncFlags.configPath, "config", "pysync.yaml", "sync-options YAML file providing flag defaults")
}

func runSync(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if syncFlags.envRoot == "" {
		return errors.New("--env is required")
	}
	if err := applyConfigDefaults(cmd, syncFlags.configPath, &syncFlags.indexURL, &syncFlags.requireHashes, &syncFlags.strict); err != nil {
		return err
	}

	resolver := buildResolver(syncFlags.indexURL)
	spec, resolved, err := aggregateAndResolve(ctx, resolver, syncFlags.sourceFlags)
	if err != nil {
		return err
	}

	var desired []planner.Desired
	for name, d := range resolved {
		desired = append(desired, planner.Desired{Name: name, Version: versionOf(d), Distribution: d})
	}
	for _, e := range spec.Editables {
		d, err := dist.FromRequirement(e)
		if err != nil {
			return errors.Wrapf(err, "classifying editable %s", e.Name)
		}
		desired = append(desired, planner.Desired{Name: e.Name, Distribution: d, Editable: isEditable(d)})
	}

	snapshot, err := (installed.FSIntrospector{}).SitePackages(ctx, syncFlags.envRoot)
	if err != nil {
		return errors.Wrap(err, "reading installed environment")
	}

	cache := buildCache()
	plan, err := planner.Build(desired, snapshot, cache, planner.Options{
		Strict:        syncFlags.strict,
		RequireHashes: syncFlags.requireHashes,
		NoBinary:      spec.NoBinary,
		NoBuild:       spec.NoBuild,
	})
	if err != nil {
		return errors.Wrap(err, "building plan")
	}

	runID := uuid.New().String()
	exec := executor.New(cache, registry.NewClient(userAgent), nil, nil, executor.Options{
		EnvRoot:       syncFlags.envRoot,
		LinkMode:      executor.LinkCopy,
		Concurrency:   syncFlags.concurrency,
		RequireHashes: syncFlags.requireHashes,
		RunID:         runID,
	})

	changes, err := exec.Apply(ctx, plan)
	if err != nil {
		return errors.Wrapf(err, "applying plan (run %s)", runID)
	}
	printChangeSet(cmd, changes)
	return nil
}

// printChangeSet renders a report.ChangeSet the way uv prints its own
// sync summary: one "+ name version" or "- name version" line per entry,
// already in the stable order report.Build produced.
func printChangeSet(cmd *cobra.Command, changes *report.ChangeSet) {
	out := cmd.OutOrStdout()
	for _, e := range changes.Entries {
		fmt.Fprintf(out, "%s %s %s\n", e.Kind, e.Name, e.Display)
	}
}
