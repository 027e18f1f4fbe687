package main

import (
	"fmt"
	"os"

	"github.com/autumnpak/epicsitegen"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		manifestPath  string
		snippetFolder string
		outputFolder  string
		dryRun        bool
	)

	root := &cobra.Command{
		Use:   "sitegen",
		Short: "Build static content from a manifest and template tree",
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Run every action in a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := afero.NewOsFs()
			io := sitegen.NewIO(fsys)

			manifestDoc, err := io.ReadDocument(manifestPath)
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}

			pipes := sitegen.WithSprigFuncs(sitegen.NewPipeRegistry())
			engine := sitegen.NewEngine(fsys, pipes,
				sitegen.WithSnippetFolder(snippetFolder),
				sitegen.WithOutputFolder(outputFolder),
				sitegen.WithDryRun(dryRun),
			)

			results, err := engine.Run(manifestDoc)
			if err != nil {
				return fmt.Errorf("running manifest: %w", err)
			}

			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "action %d failed after %s: %+v\n", r.Index, r.Elapsed, r.Err)
				}
			}
			fmt.Println(sitegen.Summary(results))

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d action(s) failed", failed)
			}
			return nil
		},
	}
	build.Flags().StringVar(&manifestPath, "manifest", "manifest.yaml", "path to the build manifest")
	build.Flags().StringVar(&snippetFolder, "snippets", "snippets/", "folder snippet directives resolve against")
	build.Flags().StringVar(&outputFolder, "out", "build/", "output folder every action writes under")
	build.Flags().BoolVar(&dryRun, "dry-run", false, "report actions without writing output")

	root.AddCommand(build)
	return root
}
