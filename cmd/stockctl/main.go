package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"labstock/pkg/client"
	"labstock/pkg/workflow"
)

// stockctl exercises the reorder workflow against a running server: log in,
// inspect the lists, and walk chemicals or request items through the
// pipeline. The session cookie lives in the process, so every command logs in
// with the given credentials first.

var (
	flagBase     string
	flagUser     string
	flagPassword string
	flagTimeout  time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "labstock reorder workflow client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagBase, "base", "http://localhost:8080", "server base url")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "username")
	root.PersistentFlags().StringVar(&flagPassword, "password", "", "password")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(listCmd(), reorderCmd(), deliverCmd(), cancelCmd(), orderItemsCmd(), receiveItemsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect builds a logged-in client and pre-fetches the lists the workflow
// validates against.
func connect(ctx context.Context) (*client.Client, error) {
	c, err := client.New(flagBase, client.WithTimeout(flagTimeout))
	if err != nil {
		return nil, err
	}
	if flagUser == "" {
		return nil, fmt.Errorf("--user is required")
	}
	if err := c.Login(ctx, flagUser, flagPassword); err != nil {
		return nil, err
	}
	if _, err := c.FetchInventory(ctx); err != nil {
		return nil, err
	}
	if _, err := c.FetchNeedingReorder(ctx); err != nil {
		return nil, err
	}
	if _, err := c.FetchOnOrder(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "list [inventory|needing-reorder|on-order|expiring-soon]",
		Short:     "print one of the inventory lists",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"inventory", "needing-reorder", "on-order", "expiring-soon"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			var items []workflow.Item
			switch args[0] {
			case "inventory":
				items, err = c.FetchInventory(ctx)
			case "needing-reorder":
				items, err = c.FetchNeedingReorder(ctx)
			case "on-order":
				items, err = c.FetchOnOrder(ctx)
			case "expiring-soon":
				items, err = c.FetchExpiringSoon(ctx)
			default:
				return fmt.Errorf("unknown list %q", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(items)
		},
	}
}

func reorderCmd() *cobra.Command {
	var expected string
	var notes string
	cmd := &cobra.Command{
		Use:   "reorder <chemical-id>",
		Short: "mark a pending chemical ordered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			var expectedAt *time.Time
			if expected != "" {
				t, err := time.Parse("2006-01-02", expected)
				if err != nil {
					return fmt.Errorf("invalid --expected date: %w", err)
				}
				expectedAt = &t
			}
			records, err := c.ReorderChemical(ctx, id, expectedAt, notes)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	cmd.Flags().StringVar(&expected, "expected", "", "expected delivery date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&notes, "notes", "", "order notes")
	return cmd
}

func deliverCmd() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "deliver <chemical-id>",
		Short: "record receipt of an ordered chemical",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			records, err := c.DeliverChemical(ctx, id, qty)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 1, "received quantity")
	return cmd
}

func cancelCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "cancel <chemical-id>",
		Short: "abort a chemical reorder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			records, err := c.CancelChemicalReorder(ctx, id, notes)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "cancellation notes")
	return cmd
}

func orderItemsCmd() *cobra.Command {
	var vendor, tracking, notes string
	cmd := &cobra.Command{
		Use:   "order-items <request-id> <item-id>[,<item-id>...]",
		Short: "mark request line items ordered",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			requestID, err := parseID(args[0])
			if err != nil {
				return err
			}
			itemIDs, err := parseIDList(args[1])
			if err != nil {
				return err
			}
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := fetchRequestItems(ctx, c, requestID); err != nil {
				return err
			}
			records, err := c.OrderRequestItems(ctx, requestID, itemIDs, workflow.ActionPayload{
				Vendor:         vendor,
				TrackingNumber: tracking,
				Notes:          notes,
			})
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor (required)")
	cmd.Flags().StringVar(&tracking, "tracking", "", "tracking number")
	cmd.Flags().StringVar(&notes, "notes", "", "order notes")
	return cmd
}

func receiveItemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receive-items <request-id> <item-id>[,<item-id>...]",
		Short: "mark request line items received",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			requestID, err := parseID(args[0])
			if err != nil {
				return err
			}
			itemIDs, err := parseIDList(args[1])
			if err != nil {
				return err
			}
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := fetchRequestItems(ctx, c, requestID); err != nil {
				return err
			}
			records, err := c.ReceiveRequestItems(ctx, requestID, itemIDs)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
}

// fetchRequestItems seeds the client cache with the request's line items so
// transition planning has snapshots to check against.
func fetchRequestItems(ctx context.Context, c *client.Client, requestID uint) error {
	_, err := c.FetchUserRequest(ctx, requestID)
	return err
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func parseIDList(s string) ([]uint, error) {
	parts := strings.Split(s, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := parseID(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func printRecords(records []workflow.TransitionRecord) error {
	for _, rec := range records {
		fmt.Printf("item %d: %s -> %s\n", rec.ItemID, rec.PreviousStatus, rec.NewStatus)
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
