package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-dlt645/internal/config"
	"github.com/arloliu/go-dlt645/logger"
	"github.com/arloliu/go-dlt645/transport"
)

type pollFlags struct {
	configPath string
	once       bool
}

type meterResult struct {
	Name    string        `yaml:"name"`
	Address string        `yaml:"address"`
	Fields  []fieldOutput `yaml:"fields,omitempty"`
	Skipped []string      `yaml:"skipped,omitempty"`
	Error   string        `yaml:"error,omitempty"`
}

type pollResult struct {
	Time   time.Time     `yaml:"time"`
	Meters []meterResult `yaml:"meters"`
}

func newPollCmd() *cobra.Command {
	flags := &pollFlags{}

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Read configured fields from meters on a serial bus",
		Long: `Open the serial port named in the configuration file and read the
configured fields from every meter, once or at the configured interval.
Each poll cycle is printed as a YAML document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("log-level") {
				level, err := cfg.Level()
				if err != nil {
					return err
				}
				logger.SetLevel(level)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runPoll(ctx, cmd.OutOrStdout(), cfg, flags.once)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Poll configuration file (YAML)")
	cmd.Flags().BoolVar(&flags.once, "once", false, "Poll every meter once and exit")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runPoll(ctx context.Context, w io.Writer, cfg *config.Config, once bool, opts ...transport.ClientOption) error {
	log := logger.GetLogger()

	tc, err := cfg.TransportConfig(transport.WithLogger(log))
	if err != nil {
		return err
	}

	client, err := transport.NewClient(tc, opts...)
	if err != nil {
		return err
	}
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		result := pollMeters(ctx, client, cfg.Meters)
		if ctx.Err() != nil {
			return nil
		}

		if err := enc.Encode(result); err != nil {
			return err
		}

		failed := 0
		for _, m := range result.Meters {
			if m.Error != "" {
				failed++
			}
		}
		log.Info("poll cycle done", "meters", len(result.Meters), "failed", failed)

		if once {
			if failed == len(result.Meters) {
				return errors.New("no meter answered")
			}

			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func pollMeters(ctx context.Context, client *transport.Client, meters []config.Meter) pollResult {
	result := pollResult{
		Time:   time.Now().UTC().Truncate(time.Second),
		Meters: make([]meterResult, 0, len(meters)),
	}

	for _, m := range meters {
		mr := meterResult{Name: m.Name, Address: m.Address}

		pf, err := client.ReadMulti(ctx, m.Address, m.FieldIDs())
		if err != nil {
			mr.Error = err.Error()
			logger.Warn("poll meter failed", "meter", m.Name, "address", m.Address, "error", err)
		} else {
			mr.Fields = newFieldOutputs(pf.Values())
			mr.Skipped = skippedStrings(pf.Skipped)
		}

		result.Meters = append(result.Meters, mr)
	}

	return result
}
