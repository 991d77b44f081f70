// cmd/ledgerdump — print an intraday P&L ledger file as text.
//
// Usage:
//
//	ledgerdump <file.bin> [file2.bin ...]
//
// Each record prints as: RFC3339 timestamp, portfolio id, total P&L.
package main

import (
	"fmt"
	"os"
	"time"

	"portfolio-rtd/internal/ledger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ledgerdump <file.bin> [file2.bin ...]")
		os.Exit(2)
	}

	exit := 0
	for _, path := range os.Args[1:] {
		recs, err := ledger.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ledgerdump: %s: %v\n", path, err)
			exit = 1
			continue
		}
		if len(os.Args) > 2 {
			fmt.Printf("# %s (%d records)\n", path, len(recs))
		}
		for _, rec := range recs {
			ts := time.Unix(0, rec.TimestampNano).UTC().Format(time.RFC3339Nano)
			fmt.Printf("%s\t%d\t%.6f\n", ts, rec.PortfolioID, rec.TotalPnL)
		}
	}
	os.Exit(exit)
}
