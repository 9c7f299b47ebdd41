package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate questionnaire catalogs",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in catalogs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range catalog.Builtins() {
			c, err := catalog.Load(name)
			if err != nil {
				return err
			}
			marker := " "
			if name == catalog.DefaultName {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-8s %2d items, scale %d-%d, categories: %v\n",
				marker, name, c.Len(), c.Scale().Min, c.Scale().Max, c.Categories())
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [name|path]",
	Short: "Print a catalog as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := catalog.DefaultName
		if len(args) == 1 {
			name = args[0]
		}
		c, err := catalog.Load(name)
		if err != nil {
			return err
		}
		data, err := catalog.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal catalog: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Check catalog files against the schema and the semantic rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			c, err := catalog.Load(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s\n  %v\n", path, err)
				continue
			}
			bridges := 0
			for _, item := range c.AllItems() {
				if item.IsBridge() {
					bridges++
				}
			}
			fmt.Fprintf(out, "✓ %s (%s: %d items, %d bridge, %d categories)\n", path, c.Name(), c.Len(), bridges, len(c.Categories()))
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d catalog(s) invalid", model.ErrConfiguration, failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}
