package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/nainya/catalogtree/pkg/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the catalog with a generated category forest",
	RunE:  runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.Int("roots", 5, "top-level categories")
	f.Int("depth", 3, "levels below each root")
	f.Int("fanout", 3, "children per category")
	f.Int("products", 20, "products, each linked to random categories")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}

	roots, _ := cmd.Flags().GetInt("roots")
	depth, _ := cmd.Flags().GetInt("depth")
	fanout, _ := cmd.Flags().GetInt("fanout")
	products, _ := cmd.Flags().GetInt("products")

	ids, err := seedForest(ctx, a.store, roots, depth, fanout)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		products = 0
	}
	for i := range products {
		p, err := a.store.CreateProduct(ctx, fmt.Sprintf("Product %03d", i+1))
		if err != nil {
			return err
		}
		for range 1 + rand.IntN(3) {
			if err := a.store.LinkProduct(ctx, ids[rand.IntN(len(ids))], p.ID); err != nil {
				return err
			}
		}
	}

	a.log.Info("catalog seeded").
		Int("categories", len(ids)).
		Int("products", products).
		Send()
	return nil
}

// seedForest creates roots top-level categories, each with depth levels of
// fanout children, and returns every id created.
func seedForest(ctx context.Context, store *catalog.Store, roots, depth, fanout int) ([]string, error) {
	var ids []string
	var grow func(parent *string, name string, level int) error
	grow = func(parent *string, name string, level int) error {
		c, err := store.CreateCategory(ctx, name, parent)
		if err != nil {
			return err
		}
		ids = append(ids, c.ID)
		if level == depth {
			return nil
		}
		for i := range fanout {
			if err := grow(&c.ID, fmt.Sprintf("%s.%d", name, i+1), level+1); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range roots {
		if err := grow(nil, fmt.Sprintf("Category %d", i+1), 0); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
