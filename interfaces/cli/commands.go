package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitemap-sync/domain/config"
	"sitemap-sync/domain/core/entities"
	"sitemap-sync/domain/core/validators"
	"sitemap-sync/domain/core/valueobjects"
	"sitemap-sync/domain/transform"
)

func (c *CLI) graphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <sitemap.json>",
		Short: "Flatten a stored sitemap into the editor graph",
		Long: `Flatten a stored sitemap into the editor graph.

The input may be a single tree, an array of trees or a graph. Full paths and
child counts are always recomputed; malformed nodes are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.readSitemap(args[0])
			if err != nil {
				return err
			}
			return c.writeJSON(res.Graph)
		},
	}
}

func (c *CLI) treeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <sitemap.json>",
		Short: "Print the persisted tree form of a sitemap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.readSitemap(args[0])
			if err != nil {
				return err
			}
			tree := transform.ToTree(res.Graph)
			if tree == nil {
				tree = []entities.TreeNode{}
			}
			return c.writeJSON(tree)
		},
	}
}

func (c *CLI) diffCommand() *cobra.Command {
	var deferMoves bool

	cmd := &cobra.Command{
		Use:   "diff <before.json> <after.json>",
		Short: "Print the operations that turn one sitemap into another",
		Long: `Print the operations that turn one sitemap into another.

Operations are ordered DELETE, MOVE, UPDATE, CREATE. With --defer-moves a MOVE
into a node created by the same change-set is placed after that CREATE, which
is the order the sync engine sends.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := c.readSitemap(args[0])
			if err != nil {
				return err
			}
			after, err := c.readSitemap(args[1])
			if err != nil {
				return err
			}

			ops := transform.FromGraph(after.Graph, &before.Graph)
			if deferMoves {
				ops = transform.DeferDependentMoves(ops)
			}
			if ops == nil {
				ops = []entities.Operation{}
			}
			c.Logger.Debug("diff computed", zap.Int("operations", len(ops)))
			return c.writeJSON(ops)
		},
	}
	cmd.Flags().BoolVar(&deferMoves, "defer-moves", false, "order moves after the creation of their new parent")
	return cmd
}

func (c *CLI) validateCommand() *cobra.Command {
	var maxSlugLength int

	cmd := &cobra.Command{
		Use:   "validate <sitemap.json>",
		Short: "Check a sitemap for structural and slug problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.readSitemap(args[0])
			if err != nil {
				return err
			}
			problems := validateGraph(validators.NewForestValidator(maxSlugLength), res.Graph)
			for _, p := range problems {
				fmt.Fprintln(c.Out, p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			fmt.Fprintf(c.Out, "ok: %d nodes\n", len(res.Graph.Nodes))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSlugLength, "max-slug-length", config.DefaultDomainConfig().MaxSlugLength, "longest accepted slug")
	return cmd
}

// validateGraph lists every problem instead of stopping at the first
func validateGraph(v *validators.ForestValidator, g entities.Graph) []string {
	var problems []string
	if err := v.ValidateForest(g); err != nil {
		problems = append(problems, err.Error())
	}
	parents := g.ParentMap()
	for _, n := range g.Nodes {
		if err := v.ValidateSlug(n.Data.Slug); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", n.ID, err))
			continue
		}
		if err := v.CheckSiblingSlug(g, parents[n.ID], n.Data.Slug, n.ID); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", n.ID, err))
		}
	}
	return problems
}

func (c *CLI) slugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slug <label...>",
		Short: "Print the slug generated for a label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.Out, valueobjects.GenerateSlug(strings.Join(args, " ")))
			return nil
		},
	}
}
