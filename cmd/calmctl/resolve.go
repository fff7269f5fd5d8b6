package main

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/calmctl/artifact"
	"github.com/c360studio/calmctl/catalog"
	"github.com/c360studio/calmctl/policy"
)

// resolveFlags holds the resolve command's flag values. Empty values fall
// back to the loaded config.
type resolveFlags struct {
	policyRef        string
	policyDir        string
	catalogDir       string
	outputDir        string
	baseDir          string
	generateControls bool
	generateMapping  bool
}

func resolveCmd(opts *rootOptions) *cobra.Command {
	flags := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a policy's assessment requirements and generate artifacts",
		Long: `Resolve fetches each base control a policy modifies, applies the
control- and requirement-level modifications, and optionally writes one
CALM control requirement document per resolved assessment requirement
plus a gemara:// URL mapping file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.policyRef, "policy", "", "Policy id or path to a policy YAML file (required)")
	cmd.Flags().StringVar(&flags.policyDir, "policy-dir", "", "Directory for policy lookup by id")
	cmd.Flags().StringVar(&flags.catalogDir, "catalog-dir", "", "Directory of Layer 2 catalog files")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Output directory for generated artifacts")
	cmd.Flags().StringVar(&flags.baseDir, "base-requirements-dir", "", "Directory mapped for base-requirement URLs")
	cmd.Flags().BoolVar(&flags.generateControls, "generate-controls", false, "Generate control requirement files")
	cmd.Flags().BoolVar(&flags.generateMapping, "generate-mapping", false, "Generate URL mapping file")
	_ = cmd.MarkFlagRequired("policy")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *rootOptions, flags *resolveFlags) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := slog.Default()

	policyDir := override(flags.policyDir, cfg.Resolve.PolicyDir)
	catalogDir := override(flags.catalogDir, cfg.Resolve.CatalogDir)
	outputDir := override(flags.outputDir, cfg.Resolve.OutputDir)
	baseDir := override(flags.baseDir, cfg.Resolve.BaseRequirementsDir)

	policyPath := locatePolicy(flags.policyRef, policyDir)
	pol, err := policy.LoadFile(policyPath)
	if err != nil {
		return err
	}
	policyID := pol.Metadata.ID

	logger.Info("Resolving assessment requirements",
		"policy_id", policyID,
		"policy_path", policyPath,
		"catalog_dir", catalogDir)

	resolver := policy.NewResolver(catalog.NewDir(catalogDir), logger)
	resolved, errs := resolver.Resolve(cmd.Context(), pol)

	for _, resolveErr := range errs {
		fmt.Fprintf(os.Stderr, "control reference failed: %v\n", resolveErr)
	}
	if len(resolved) == 0 && len(errs) > 0 {
		return fmt.Errorf("all %d control reference(s) failed to resolve", len(errs))
	}
	fmt.Printf("Resolved %d assessment requirements from policy %q\n", len(resolved), policyID)

	controlsRel := path.Join("controls", policyID)

	if flags.generateControls {
		store := artifact.NewDirStore(filepath.Join(outputDir, "controls", policyID), logger)
		for _, r := range resolved {
			filePath, err := store.Write(r.RequirementID, artifact.Build(r))
			if err != nil {
				return fmt.Errorf("generate control file for %s: %w", r.RequirementID, err)
			}
			fmt.Printf("Generated control requirement file: %s\n", filePath)
		}
	}

	if flags.generateMapping {
		mapping := artifact.URLMapping(resolved, controlsRel, baseDir)
		mappingPath := filepath.Join(outputDir, policyID+"-url-mapping.json")
		if err := artifact.WriteURLMapping(mappingPath, mapping); err != nil {
			return err
		}
		fmt.Printf("Generated URL mapping: %s\n", mappingPath)
	}

	if len(errs) > 0 {
		logger.Warn("Resolution completed with failures",
			"policy_id", policyID,
			"failed_controls", len(errs))
	}
	return nil
}

// locatePolicy treats the reference as a file path when one exists, else as
// a policy id under policyDir.
func locatePolicy(ref, policyDir string) string {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref
	}
	return filepath.Join(policyDir, ref+".yaml")
}
