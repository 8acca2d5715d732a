package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/format"
	"github.com/norun9/bakery-storefront/pricing"
	"github.com/norun9/bakery-storefront/services"
)

var (
	cartSession string
	cartJSON    bool
)

// cartCmd inspects the carts kept in the configured storage
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or clear a session's cart in the configured storage",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a session's cart",
	RunE:  runCartShow,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty a session's cart",
	RunE:  runCartClear,
}

func init() {
	for _, c := range []*cobra.Command{cartShowCmd, cartClearCmd} {
		c.Flags().StringVar(&cartSession, "session", "", "session id (the shop_session-id cookie)")
		c.MarkFlagRequired("session")
	}
	cartShowCmd.Flags().BoolVar(&cartJSON, "json", false, "print the stored JSON records")
}

// openCart loads the session's cart from the configured storage. The caller closes
// the returned storage.
func openCart(cmd *cobra.Command) (*cartstore.Store, cartstore.Storage, error) {
	if _, err := uuid.Parse(cartSession); err != nil {
		return nil, nil, fmt.Errorf("invalid session id %q: %w", cartSession, err)
	}
	storage, err := cartstore.Open(cmd.Context(), cfg.StorageOptions(), log)
	if err != nil {
		return nil, nil, err
	}
	entry := log.WithField("session", cartSession)
	persister := cartstore.NewPersister(cartstore.Scoped(storage, services.Namespace(cartSession)), entry)
	return cartstore.New(cmd.Context(), persister, entry), storage, nil
}

func runCartShow(cmd *cobra.Command, args []string) error {
	store, storage, err := openCart(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	if cartJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(store.Items())
	}
	return printCart(cmd.OutOrStdout(), store.Items(), cfg.TaxRate)
}

func runCartClear(cmd *cobra.Command, args []string) error {
	store, storage, err := openCart(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	if _, err := store.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cart for session %s cleared\n", cartSession)
	return nil
}

func printCart(w io.Writer, c cartstore.Cart, taxRate float64) error {
	if len(c) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return nil
	}
	for _, item := range c {
		fmt.Fprintf(w, "%3d x %-30s %10s\n", item.Quantity, format.Truncate(item.Name, 30), format.FormatPrice(item.Price*int64(item.Quantity)))
	}
	summary, err := pricing.Summarize(c.Total(), 0, taxRate)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d items\n", c.ItemsCount())
	fmt.Fprintf(w, "%-36s %10s\n", "Subtotal", format.FormatPrice(summary.Subtotal))
	fmt.Fprintf(w, "%-36s %10s\n", "Tax", format.FormatPrice(summary.Tax))
	fmt.Fprintf(w, "%-36s %10s\n", "Total", format.FormatPrice(summary.Total))
	return nil
}
