package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nainya/catalogtree/pkg/catalog"
)

var treeCmd = &cobra.Command{
	Use:   "tree [category-id]",
	Short: "Print a page of the category forest, or one category's tree, as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	f := treeCmd.Flags()
	f.Int("page", 1, "page of top-level categories")
	f.Int("limit", 0, "top-level categories per page (0 = all)")
	f.String("search", "", "case-insensitive name search; matches keep their ancestors and subtrees")
	f.Bool("subtree", false, "with a category id, print only its subtree")
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	svc := a.service()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if len(args) == 1 {
		subtree, _ := cmd.Flags().GetBool("subtree")
		get := svc.GetCategoryTree
		if subtree {
			get = svc.GetCategorySubTree
		}
		node, err := get(ctx, args[0])
		if err != nil && node == nil {
			return err
		}
		return enc.Encode(node)
	}

	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")
	res, err := svc.ListCategories(ctx, catalog.ListParams{TextSearch: search, Page: page, Limit: limit})
	if err != nil && res == nil {
		return err
	}
	return enc.Encode(res)
}
