package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	appconfig "github.com/joripage/marketsim/config"
	"github.com/joripage/marketsim/pkg/backtest"
	"github.com/joripage/marketsim/pkg/logging"
	"github.com/joripage/marketsim/pkg/marketdata"
	"github.com/joripage/marketsim/pkg/oms"
	"github.com/joripage/marketsim/pkg/oms/model"
	"github.com/joripage/marketsim/pkg/risk"
)

// buyAndHold buys a fixed quantity of each symbol on its first tick.
type buyAndHold struct {
	qty    decimal.Decimal
	bought map[string]bool
}

func (s *buyAndHold) OnStart(e *backtest.Engine) error {
	s.bought = make(map[string]bool)
	return nil
}

func (s *buyAndHold) OnTick(tick *marketdata.Tick, e *backtest.Engine) error {
	if s.bought[tick.Symbol] {
		return nil
	}
	s.bought[tick.Symbol] = true
	_, err := e.SendOrder(context.Background(), tick.Symbol, model.OrderSideBuy, s.qty, model.OrderTypeMarket)
	return err
}

func (s *buyAndHold) OnStop(e *backtest.Engine) error {
	fmt.Printf("portfolio value: %s\n", e.PortfolioValue().StringFixed(2))
	return nil
}

// decimalPtr converts an optional float setting, keeping absence as nil.
func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	log := logging.NewLogger(logging.INFO)
	defer log.Sync()

	cfg := &appconfig.AppConfig{}
	if *configPath != "" {
		loaded, err := appconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Feed == nil {
		cfg.Feed = &appconfig.FeedConfig{AlwaysOpen: true}
	}
	if cfg.Engine == nil {
		cfg.Engine = &appconfig.EngineConfig{}
	}
	if cfg.Backtest == nil {
		cfg.Backtest = &appconfig.BacktestConfig{}
	}
	if cfg.Risk == nil {
		cfg.Risk = &appconfig.RiskConfig{Confidence: 0.99, Window: 252}
	}

	proc := marketdata.NewPriceProcess(&marketdata.PriceProcessConfig{
		Symbols:        cfg.Feed.Symbols,
		InitialPrices:  cfg.Feed.InitialPrices,
		Volatility:     cfg.Feed.Volatility,
		TickSize:       cfg.Feed.TickSize,
		LotSize:        cfg.Feed.LotSize,
		UpdateInterval: cfg.Feed.UpdateInterval.Std(),
		Seed:           cfg.Feed.Seed,
	})
	feed := marketdata.NewSimFeed(proc, marketdata.MarketHours{
		Open:       cfg.Feed.MarketOpen.Std(),
		Close:      cfg.Feed.MarketClose.Std(),
		AlwaysOpen: cfg.Feed.AlwaysOpen,
	}, log)

	engineCfg := &oms.Config{
		Slippage:             decimalPtr(cfg.Engine.Slippage),
		Commission:           decimalPtr(cfg.Engine.Commission),
		LimitFillProbability: cfg.Engine.LimitFillProbability,
		StartingCash:         decimalPtr(cfg.Engine.StartingCash),
		Seed:                 cfg.Engine.Seed,
	}
	engine := oms.NewEngine(feed, engineCfg, log)

	bt := backtest.NewEngine(feed, engine, &buyAndHold{qty: decimal.NewFromInt(100)}, &backtest.Config{
		Symbols:      proc.Symbols(),
		PollInterval: cfg.Backtest.PollInterval.Std(),
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("Shutting down...")
		bt.Stop()
		cancel()
	}()

	fmt.Println("Simulator started. Press Ctrl+C to exit.")
	if err := bt.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
	}

	// end-of-session risk report over a year of generated daily history
	end := time.Now().UTC()
	series := make(map[string][]marketdata.Bar)
	for _, sym := range proc.Symbols() {
		series[sym] = feed.Process().History(sym, end.AddDate(-1, 0, 0), end, marketdata.FrequencyDaily)
	}
	panel := risk.PanelFromBars(proc.Symbols(), series)
	calc := risk.NewHistoricalVaR(engine, risk.FeedPrices{Quotes: feed}, cfg.Risk.Confidence, cfg.Risk.Window)
	result := calc.Compute(panel)
	fmt.Printf("historical VaR (%.0f%%, %dd window): %s\n",
		result.Confidence*100, result.Window, result.ValueAtRisk.StringFixed(2))

	fmt.Println("Exited cleanly.")
}
