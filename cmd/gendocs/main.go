package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/yoanbernabeu/sshinvoke/internal/cmd"
)

// Output formats supported by generate
const (
	formatMarkdown = "markdown"
	formatMan      = "man"
	formatYAML     = "yaml"
)

func main() {
	var (
		outputDir string
		format    string
	)

	gendocs := &cobra.Command{
		Use:           "gendocs",
		Short:         "Generate the sshinvoke command reference",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(c *cobra.Command, args []string) error {
			if err := generate(cmd.GetRootCmd(), format, outputDir); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Documentation generated in %s\n", outputDir)
			return nil
		},
	}
	gendocs.Flags().StringVarP(&outputDir, "out", "o", filepath.Join("docs", "commands"), "Output directory")
	gendocs.Flags().StringVarP(&format, "format", "f", formatMarkdown, "Output format: markdown, man or yaml")

	if err := gendocs.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gendocs: %v\n", err)
		os.Exit(1)
	}
}

// generate writes one reference file per command of root into dir
func generate(root *cobra.Command, format, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Keeps the output stable between runs
	root.DisableAutoGenTag = true

	var err error
	switch format {
	case formatMarkdown:
		err = doc.GenMarkdownTree(root, dir)
	case formatMan:
		err = doc.GenManTree(root, &doc.GenManHeader{
			Title:   "SSHINVOKE",
			Section: "1",
			Source:  "sshinvoke " + root.Version,
		}, dir)
	case formatYAML:
		err = doc.GenYamlTree(root, dir)
	default:
		return fmt.Errorf("unknown format %q (expected markdown, man or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s documentation: %w", format, err)
	}
	return nil
}
