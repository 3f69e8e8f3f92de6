package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/app"
)

func main() {
	quote := flag.String("quote", "", "price a cart, e.g. rainbow:2,pea:1")
	flag.Parse()

	// Load configuration
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Wiring migrates and seeds the catalog database on first run.
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *quote == "" {
		err = listCatalog(ctx, application)
	} else {
		err = priceCart(ctx, application, *quote)
	}
	if err != nil {
		application.Logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func listCatalog(ctx context.Context, a *app.App) error {
	catalog := a.Checkout.Catalog()
	varieties, err := catalog.ListVarieties(ctx)
	if err != nil {
		return err
	}
	tiers, err := catalog.ListPlanTiers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, v := range varieties {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Name, v.UnitPrice)
	}
	fmt.Fprintln(w)
	for _, t := range tiers {
		packs := "any"
		if t.RequiredPacks != nil {
			packs = strconv.Itoa(*t.RequiredPacks)
		}
		fmt.Fprintf(w, "%s\t%s\t%s packs\t%s off\n", t.ID, t.Name, packs, t.DiscountRate.Shift(2).String()+"%")
	}
	return w.Flush()
}

func priceCart(ctx context.Context, a *app.App, quote string) error {
	session, err := a.Checkout.Open(ctx, a.Checkout.NewSessionID())
	if err != nil {
		return err
	}
	for _, part := range strings.Split(quote, ",") {
		id, qty, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return fmt.Errorf("bad item %q, want variety:quantity", part)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return fmt.Errorf("bad quantity in %q: %w", part, err)
		}
		if _, err := session.AddItem(ctx, id, n); err != nil {
			return err
		}
	}

	p := session.Pricing()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "subtotal\t%s\t\n", p.Subtotal)
	fmt.Fprintf(w, "discount\t-%s\t\n", p.DiscountAmount)
	fmt.Fprintf(w, "shipping\t%s\t\n", p.ShippingCost)
	fmt.Fprintf(w, "tax\t%s\t\n", p.Tax.Amount)
	fmt.Fprintf(w, "total\t%s\t\n", p.Total)
	return w.Flush()
}
