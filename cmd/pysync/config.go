package main

import (
	"github.com/spf13/cobra"

	"github.com/pysync/pysync/internal/config"
)

// applyConfigDefaults loads the sync-options file at path (if present)
// and fills in indexURL/requireHashes/strict wherever the caller did not
// explicitly pass the corresponding flag, so a committed pysync.yaml can
// set project-wide defaults without overriding a one-off CLI override.
func applyConfigDefaults(cmd *cobra.Command, path string, indexURL *string, requireHashes, strict *bool) error {
	opts, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts == nil {
		return nil
	}
	if opts.IndexURL != "" && !cmd.Flags().Changed("index-url") {
		*indexURL = opts.IndexURL
	}
	if !cmd.Flags().Changed("require-hashes") {
		*requireHashes = *requireHashes || opts.RequireHashes
	}
	if !cmd.Flags().Changed("strict") {
		*strict = *strict || opts.Strict
	}
	return nil
}
