package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flowscan/internal/adapters/notify"
	"github.com/alejandrodnm/flowscan/internal/domain"
)

var exitCmd = &cobra.Command{
	Use:   "exit <trade-id>",
	Short: "Close an open paper trade at the current market price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid trade id %q", args[0])
		}

		store, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		engine := newPaperEngine(cfg, store)
		trade, err := engine.ExitByID(cmd.Context(), id, newMarketClient(cfg), domain.ExitManual)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("trade %d not found", id)
		case errors.Is(err, domain.ErrTradeNotOpen):
			return fmt.Errorf("trade %d is already %s", id, trade.Status)
		case err != nil:
			return err
		}

		notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintTrades([]domain.PaperTrade{trade})
		return nil
	},
}
