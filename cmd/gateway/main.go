package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregtusar/levgate/api"
	"github.com/gregtusar/levgate/internal/config"
	"github.com/gregtusar/levgate/pkg/exchange"
	"github.com/gregtusar/levgate/pkg/gateway"
	"github.com/gregtusar/levgate/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "levgate",
		Short: "Leveraged order gateway for crypto derivatives exchanges",
		Long: `Accepts exchange-agnostic "open leveraged position" requests and submits
signed market orders to Binance, Bybit, OKX, Bitget, HTX or Gate.io. Exchanges
without configured API keys answer with a simulated test order.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(newServeCmd(), newOrderCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup() (*config.Config, error) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return cfg, nil
}

// newGateway wires the gateway. The returned cleanup releases the secret
// manager client when one was created.
func newGateway(ctx context.Context, cfg *config.Config, prices gateway.PriceSource) (*gateway.Gateway, func(), error) {
	resolver, closeResolver, err := config.NewResolver(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	client := exchange.NewClient(exchange.ClientOptions{
		Timeout:    cfg.Exchange.Timeout,
		RecvWindow: cfg.Exchange.RecvWindow,
		Sandbox:    cfg.Exchange.Sandbox,
		BaseURLs:   cfg.Exchange.BaseURLs,
	}, logger)

	gw := gateway.New(resolver, prices, client, logger, gateway.WithMaxMockDelay(cfg.Order.MaxMockDelay))
	cleanup := func() {
		if err := closeResolver(); err != nil {
			logger.WithError(err).Warn("Failed to close secret manager")
		}
	}
	return gw, cleanup, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fallback := decimal.NewFromFloat(cfg.Pricing.ReferencePrice)
			var prices gateway.PriceSource = gateway.StaticPrice(fallback)
			var feed *exchange.TickerFeed
			if cfg.Pricing.Feed.Enabled {
				feed = exchange.NewTickerFeed(exchange.TickerFeedConfig{
					URL:            cfg.Pricing.Feed.URL,
					Symbols:        cfg.Pricing.Feed.Symbols,
					Fallback:       fallback,
					ReconnectDelay: cfg.Pricing.Feed.ReconnectDelay,
					MaxReconnects:  cfg.Pricing.Feed.MaxReconnects,
				}, logger)
				prices = feed
			}

			gw, cleanup, err := newGateway(ctx, cfg, prices)
			if err != nil {
				return err
			}
			defer cleanup()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return api.NewServer(gw, logger, cfg.Server).Start(ctx)
			})
			if feed != nil {
				g.Go(func() error {
					return runFeed(ctx, feed, logger)
				})
			}

			logger.Info("Gateway is running. Press Ctrl+C to stop.")
			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("Gateway stopped")
			return nil
		},
	}
}

type feedRunner interface {
	Run(ctx context.Context) error
}

// runFeed never fails the serve group: once the feed stops, prices fall back
// to the static reference price and the API keeps serving.
func runFeed(ctx context.Context, feed feedRunner, logger *logrus.Logger) error {
	if err := feed.Run(ctx); err != nil {
		logger.WithError(err).Error("Ticker feed stopped, using static reference price")
	}
	return nil
}

func newOrderCmd() *cobra.Command {
	var (
		req                                    models.OrderRequest
		leverage, amount, stopLoss, takeProfit string
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place a single order and print the response envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			for _, f := range []struct {
				name  string
				value string
				dst   *decimal.NullDecimal
			}{
				{"leverage", leverage, &req.Leverage},
				{"amount", amount, &req.Amount},
				{"stop-loss", stopLoss, &req.StopLoss},
				{"take-profit", takeProfit, &req.TakeProfit},
			} {
				if f.value == "" {
					continue
				}
				d, err := decimal.NewFromString(f.value)
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", f.name, err)
				}
				*f.dst = decimal.NewNullDecimal(d)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Exchange.Timeout+5*time.Second)
			defer cancel()

			gw, cleanup, err := newGateway(ctx, cfg, gateway.StaticPrice(decimal.NewFromFloat(cfg.Pricing.ReferencePrice)))
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := gw.Handle(ctx, req)
			out, _ := json.MarshalIndent(gateway.NewResponse(result, err), "", "  ")
			fmt.Println(string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&req.Exchange, "exchange", "bybit", "exchange identifier")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "exchange-native symbol, e.g. SUPERUSDT")
	cmd.Flags().StringVar(&req.Side, "side", "Buy", "Buy or Sell")
	cmd.Flags().StringVar(&leverage, "leverage", "", "leverage (default 10)")
	cmd.Flags().StringVar(&amount, "amount", "", "margin amount (default 100)")
	cmd.Flags().StringVar(&stopLoss, "stop-loss", "", "stop-loss percent (default 2, 0 disables)")
	cmd.Flags().StringVar(&takeProfit, "take-profit", "", "take-profit percent (default 5, 0 disables)")
	cmd.SilenceUsage = true
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			token, err := api.IssueToken(cfg.Server.Auth.JWTSecret, cfg.Server.Auth.Issuer, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "levgate-client", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
