package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price [file]",
		Short: "Price a cart read from a file or stdin",
		Long: "Price reads either a stored cart snapshot ({\"version\":1,\"items\":[...]}) " +
			"or a bare JSON array of items and prints the totals.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			items, err := readItems(in)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cart.Price(items))
		},
	}
}

func readItems(r io.Reader) ([]cart.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var items []cart.Item
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &items)
	} else {
		var snap struct {
			Items []cart.Item `json:"items"`
		}
		err = json.Unmarshal(data, &snap)
		items = snap.Items
	}
	if err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, nil
}
