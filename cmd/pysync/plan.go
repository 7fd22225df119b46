package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/installed"
	"github.com/pysync/pysync/pkg/planner"
	"github.com/pysync/pysync/pkg/reqs"
)

var planFlags struct {
	sourceFlags
	envRoot       string
	indexURL      string
	requireHashes bool
	strict        bool
	configPath    string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute and print the install plan without executing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		planFlags.bareNames = args
		return runPlan(cmd)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringArrayVarP(&planFlags.requirementsFiles, "requirement", "r", nil, "requirements file to read")
	planCmd.Flags().StringArrayVarP(&planFlags.editablePaths, "editable", "e", nil, "editable local project to install")
	planCmd.Flags().StringVar(&planFlags.projectManifest, "project", "", "path to a pyproject.toml to aggregate")
	planCmd.Flags().StringVar(&planFlags.envRoot, "env", "", "target environment root (site-packages)")
	planCmd.Flags().StringVar(&planFlags.indexURL, "index-url", "https://pypi.org/simple", "base index URL for pinned resolution")
	planCmd.Flags().BoolVar(&planFlags.requireHashes, "require-hashes", false, "fail closed unless every requirement carries a hash")
	planCmd.Flags().BoolVar(&planFlags.strict, "strict", false, "mark every unmatched installed distribution as extraneous")
	planCmd.Flags().StringVar(&planFlags.configPath, "config", "pysync.yaml", "sync-options YAML file providing flag defaults")
}

// aggregateAndResolve runs the shared aggregation -> resolution prefix
// that both plan and sync need, given the caller's resolver collaborator
// (§6's external contracts).
func aggregateAndResolve(ctx context.Context, resolver contracts.Resolver, f sourceFlags) (*reqs.Specification, map[string]dist.Distribution, error) {
	spec, err := reqs.NewAggregator().FromSources(f.requirements(), nil, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "aggregating requirements")
	}
	if len(spec.Requirements) == 0 {
		return spec, map[string]dist.Distribution{}, nil
	}
	resolved, err := resolver.Resolve(ctx, spec.Requirements, spec.Constraints, spec.Overrides, "", "")
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolving requirements")
	}
	return spec, resolved, nil
}

func runPlan(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := applyConfigDefaults(cmd, planFlags.configPath, &planFlags.indexURL, &planFlags.requireHashes, &planFlags.strict); err != nil {
		return err
	}
	resolver := buildResolver(planFlags.indexURL)
	spec, resolved, err := aggregateAndResolve(ctx, resolver, planFlags.sourceFlags)
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

	var snapshot []contracts.InstalledDistribution
	if planFlags.envRoot != "" {
		snapshot, err = (installed.FSIntrospector{}).SitePackages(ctx, planFlags.envRoot)
		if err != nil {
			return errors.Wrap(err, "reading installed environment")
		}
	}

	cache := buildCache()
	plan, err := planner.Build(desired, snapshot, cache, planner.Options{
		Strict:        planFlags.strict,
		RequireHashes: planFlags.requireHashes,
		NoBinary:      spec.NoBinary,
		NoBuild:       spec.NoBuild,
	})
	if err != nil {
		return errors.Wrap(err, "building plan")
	}

	out := cmd.OutOrStdout()
	for _, c := range plan.Cached {
		fmt.Fprintf(out, "cached    %s %s\n", c.Desired.Name, c.Desired.Version)
	}
	for _, r := range plan.Remote {
		fmt.Fprintf(out, "remote    %s %s\n", r.Name, r.Version)
	}
	for _, r := range plan.Reinstalls {
		fmt.Fprintf(out, "reinstall %s %s\n", r.Name, r.Version)
	}
	for _, e := range plan.Extraneous {
		fmt.Fprintf(out, "remove    %s %s\n", e.Name, e.Version)
	}
	return nil
}

func versionOf(d dist.Distribution) string {
	switch v := d.(type) {
	case *dist.RegistryBuilt:
		return v.BestWheel().Filename.Version
	case *dist.DirectUrlBuilt:
		return v.Filename.Version
	case *dist.PathBuilt:
		return v.Filename.Version
	default:
		return ""
	}
}

// isEditable reports whether d resolved to a local directory installed in
// editable mode, the only Distribution variant that carries the flag.
func isEditable(d dist.Distribution) bool {
	ds, ok := d.(*dist.DirectorySource)
	return ok && ds.Editable
}
