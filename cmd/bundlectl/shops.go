package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jafarshop/bundleapp/internal/api/middleware"
	"github.com/jafarshop/bundleapp/internal/domain"
)

func normalizeShopDomain(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return "", fmt.Errorf("--shop is required")
	}
	if !strings.HasSuffix(s, ".myshopify.com") {
		return "", fmt.Errorf("shop must be a *.myshopify.com domain, got %q", s)
	}
	return s, nil
}

// generateAPIKey returns a random key for the admin API.
func generateAPIKey() string {
	return "bnd_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newShopsCmd(current func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shops",
		Short: "Manage installed shops",
	}

	var shopFlag, tokenFlag string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a shop (or rotate its API key) and print the new key",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := current()
			shopDomain, err := normalizeShopDomain(shopFlag)
			if err != nil {
				return err
			}
			token := strings.TrimSpace(tokenFlag)
			if token == "" {
				return fmt.Errorf("--token is required")
			}

			apiKey := generateAPIKey()
			hash, err := middleware.HashAPIKey(apiKey)
			if err != nil {
				return fmt.Errorf("hash API key: %w", err)
			}

			shop := &domain.Shop{Domain: shopDomain, AccessToken: token, APIKeyHash: hash}
			if existing, err := e.repos.Shop.GetByDomain(cmd.Context(), shopDomain); err == nil {
				shop.ID = existing.ID
				shop.CreatedAt = existing.CreatedAt
				shop.ShopGID = existing.ShopGID
			}
			if err := e.repos.Shop.Upsert(cmd.Context(), shop); err != nil {
				return fmt.Errorf("save shop: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Shop registered: %s\n", shopDomain)
			fmt.Fprintf(out, "API key: %s\n", apiKey)
			fmt.Fprintln(out, "Save this key now; it cannot be shown again.")
			fmt.Fprintf(out, "Send it as:\n  %s: %s\n  Authorization: Bearer %s\n", middleware.ShopDomainHeader, shopDomain, apiKey)
			return nil
		},
	}
	register.Flags().StringVar(&shopFlag, "shop", "", "shop domain, e.g. example.myshopify.com")
	register.Flags().StringVar(&tokenFlag, "token", "", "offline Admin API access token")

	var eraseShop string
	erase := &cobra.Command{
		Use:   "erase",
		Short: "Delete every merge configuration and the shop record",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := current()
			shopDomain, err := normalizeShopDomain(eraseShop)
			if err != nil {
				return err
			}
			if err := e.services.Eraser.EraseShop(cmd.Context(), shopDomain); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Erased %s\n", shopDomain)
			return nil
		},
	}
	erase.Flags().StringVar(&eraseShop, "shop", "", "shop domain")

	cmd.AddCommand(register, erase)
	return cmd
}
