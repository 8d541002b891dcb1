package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rookgm/brewtrack/internal/auth"
	"github.com/rookgm/brewtrack/internal/localcache"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/timeline"
	"github.com/spf13/cobra"
)

// parseItem parses "name:qty:price[:HOT|ICE]"
func parseItem(raw string) (models.PlaceItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return models.PlaceItem{}, fmt.Errorf("item %q: want name:qty:price[:HOT|ICE]", raw)
	}

	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.PlaceItem{}, fmt.Errorf("item %q: bad quantity: %w", raw, err)
	}
	price, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return models.PlaceItem{}, fmt.Errorf("item %q: bad price: %w", raw, err)
	}

	item := models.PlaceItem{
		Name:     strings.TrimSpace(parts[0]),
		Quantity: qty,
		Price:    price,
	}
	if len(parts) == 4 {
		switch temp := models.Temperature(strings.ToUpper(parts[3])); temp {
		case models.TemperatureHot, models.TemperatureIce:
			item.Temperature = temp
		default:
			return models.PlaceItem{}, fmt.Errorf("item %q: temperature must be HOT or ICE", raw)
		}
	}
	return item, nil
}

func printOrder(w io.Writer, o models.OrderWithItems) {
	fmt.Fprintf(w, "%s  %-10s  %-12s total %d  (%s)\n", o.DisplayCode(), o.Status, o.CustomerName, o.Total, o.ID)
	for _, it := range o.Items {
		fmt.Fprintf(w, "    %-24s x%d  %-11s (%s)\n", it.Name, it.Quantity, it.Status, it.ID)
	}
}

func printTransition(w io.Writer, res *models.TransitionResult) {
	subject := "order " + res.OrderID
	if res.ItemID != "" {
		subject = "item " + res.ItemID
	}
	fmt.Fprintf(w, "%s: %s -> %s\n", subject, res.From, res.To)
	for _, c := range res.Cascaded {
		fmt.Fprintf(w, "    item %s: %s -> %s\n", c.ItemID, c.From, c.To)
	}
}

// PlaceOptions holds flags for the place command.
type PlaceOptions struct {
	*RootOptions
	Items    []string
	Name     string
	Pickup   string
	Note     string
	Discount int64
	CacheOptions
}

// NewPlaceCommand creates the place command.
func NewPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order",
		Long: `Place an order. Each --item is name:qty:price with an optional HOT or ICE variant.
Customers always order under their own name, --name is used by staff.

Examples:
  brewtrack-cli place --item Latte:2:1500:HOT --item Scone:1:1000
  brewtrack-cli place --item Americano:1:1200:ICE --pickup 09:30 --note "no sugar"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			if len(opts.Items) == 0 {
				return fmt.Errorf("at least one --item is required")
			}

			req := &models.PlaceOrderRequest{
				CustomerName: opts.Name,
				PickupTime:   opts.Pickup,
				Note:         opts.Note,
				Discount:     opts.Discount,
			}
			for _, raw := range opts.Items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
			}

			order, err := opts.Client().Place(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("place order: %w", err)
			}
			printOrder(cmd.OutOrStdout(), *order)
			return opts.remember(cmd, order)
		},
	}

	bindCacheFlags(cmd, &opts.CacheOptions)
	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "order line name:qty:price[:HOT|ICE], repeatable")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "customer name, staff only")
	cmd.Flags().StringVar(&opts.Pickup, "pickup", "", "pickup time")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note for the barista")
	cmd.Flags().Int64Var(&opts.Discount, "discount", 0, "discount in minor units")

	return cmd
}

// remember adds a customer's new order to the local order cache
func (o *PlaceOptions) remember(cmd *cobra.Command, order *models.OrderWithItems) error {
	payload, err := auth.PeekPayload(o.Token)
	if err != nil || payload.Role != models.RoleCustomer {
		return nil
	}

	cache, closeCache, err := o.cache(payload.CustomerName)
	if err != nil {
		return err
	}
	defer closeCache()

	records := localcache.Reconcile(cache.Load(cmd.Context()), []models.OrderWithItems{*order})
	if err := cache.Save(cmd.Context(), records); err != nil {
		return fmt.Errorf("save local orders: %w", err)
	}
	return nil
}

// NewAdvanceCommand creates the advance command.
func NewAdvanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance ORDER_ID STATUS",
		Short: "Move an order to a status",
		Long: `Move an order to preparing, completed or canceled. Items follow the order.

Examples:
  brewtrack-cli advance 7f0c... preparing`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := models.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			res, err := opts.Client().TransitionOrder(cmd.Context(), args[0], to)
			if err != nil {
				return fmt.Errorf("advance order: %w", err)
			}
			printTransition(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// NewItemCommand creates the item command.
func NewItemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item ORDER_ID ITEM_ID STATUS",
		Short: "Move a single item to a status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := models.ParseItemStatus(args[2])
			if err != nil {
				return err
			}
			res, err := opts.Client().TransitionItem(cmd.Context(), args[1], to, args[0])
			if err != nil {
				return fmt.Errorf("advance item: %w", err)
			}
			printTransition(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	UTC bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history ORDER_ID",
		Short: "Show the status event log of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.Client()

			events, err := c.Events(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			// deleted orders keep their events but lose item names
			snap, err := c.Snapshot(cmd.Context(), models.OrderScope(args[0]))
			if err != nil {
				return fmt.Errorf("get order: %w", err)
			}
			var items []models.OrderItem
			if len(snap) > 0 {
				items = snap[0].Items
			}

			loc := time.Local
			if opts.UTC {
				loc = time.UTC
			}
			return timeline.Render(cmd.OutOrStdout(), events, items, loc)
		},
	}

	cmd.Flags().BoolVar(&opts.UTC, "utc", false, "print times in UTC")

	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ORDER_ID",
		Short: "Delete a completed or canceled order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Client().Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete order: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
