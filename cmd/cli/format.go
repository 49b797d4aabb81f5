package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/and161185/stockfolio/internal/api"
)

// won renders a KRW amount rounded to whole won.
func won(d decimal.Decimal) string {
	return money.New(d.Round(0).IntPart(), money.KRW).Display()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHoldings(w io.Writer, list *api.HoldingList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CODE\tNAME\tQTY\tAVG\tPRICE\tVALUE\tP/L\t")
	var value, cost decimal.Decimal
	for _, h := range list.Holdings {
		pl := "-"
		if h.CurrentPrice.IsPositive() {
			pl = won(h.MarketValue.Sub(h.CostBasis))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
			h.StockCode, h.StockName, h.Quantity, won(h.AveragePrice), won(h.CurrentPrice), won(h.MarketValue), pl)
		value = value.Add(h.MarketValue)
		cost = cost.Add(h.CostBasis)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\t%s\t\n", won(value), won(value.Sub(cost)))
	return tw.Flush()
}
