package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jafarshop/bundleapp/internal/domain"
)

func newMergeCmd(current func() *env) *cobra.Command {
	var shopFlag string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Inspect and republish merge configurations",
	}
	cmd.PersistentFlags().StringVar(&shopFlag, "shop", "", "shop domain")

	loadShop := func(cmd *cobra.Command) (*env, *domain.Shop, error) {
		e := current()
		shopDomain, err := normalizeShopDomain(shopFlag)
		if err != nil {
			return nil, nil, err
		}
		shop, err := e.repos.Shop.GetByDomain(cmd.Context(), shopDomain)
		if err != nil {
			return nil, nil, err
		}
		return e, shop, nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List merge groups by slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, shop, err := loadShop(cmd)
			if err != nil {
				return err
			}
			rows, err := e.services.MergeConfigurations.List(cmd.Context(), shop)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tGROUP\tPRODUCTS")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\n", row.SlotID, row.GroupKey, strings.Join(row.ProductIDs, ","))
			}
			fmt.Fprintf(w, "\n%d of %d slots used\n", len(rows), domain.SlotCount)
			return w.Flush()
		},
	}

	document := &cobra.Command{
		Use:   "document",
		Short: "Print the document the next publish would write",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, shop, err := loadShop(cmd)
			if err != nil {
				return err
			}
			doc, err := e.services.MergeConfigurations.Document(cmd.Context(), shop)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	publish := &cobra.Command{
		Use:   "publish",
		Short: "Rewrite the merge-configurations metafield from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, shop, err := loadShop(cmd)
			if err != nil {
				return err
			}
			doc, err := e.services.MergeConfigurations.Republish(cmd.Context(), shop)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d merge group(s) for %s\n", doc.BoundCount(), shop.Domain)
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Compare the published metafield with the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, shop, err := loadShop(cmd)
			if err != nil {
				return err
			}
			report, err := e.services.MergeConfigurations.Verify(cmd.Context(), shop)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.InSync {
				fmt.Fprintf(out, "In sync: %d merge group(s) published for %s\n", report.Expected.BoundCount(), shop.Domain)
				return nil
			}

			expected, err := json.Marshal(report.Expected)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Expected:  %s\n", expected)
			if report.Published == nil {
				fmt.Fprintln(out, "Published: (not set)")
			} else {
				published, err := json.Marshal(report.Published)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Published: %s\n", published)
			}
			return fmt.Errorf("merge configurations for %s are out of date; run `bundlectl merge publish --shop %s`", shop.Domain, shop.Domain)
		},
	}

	cmd.AddCommand(list, document, publish, verify)
	return cmd
}
