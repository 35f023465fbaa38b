// Command smsdemo runs the end-to-end SMS lifecycle against a Twilio account:
// send a random test message, extract it, redact it, verify the redaction,
// delete it, and export the full account history. Every step is best-effort;
// a failed step is logged and the run continues.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/smslab/sms-extract/internal/config"
	"github.com/smslab/sms-extract/internal/gateway"
	"github.com/smslab/sms-extract/internal/observability/metrics"
	"github.com/smslab/sms-extract/internal/phone"
	"github.com/smslab/sms-extract/internal/twilioclient"
	"github.com/smslab/sms-extract/pkg/logging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to the TOML credentials file")
		environment = flag.String("env", config.EnvLive, "Twilio environment, LIVE or TEST")
		fromNumber  = flag.String("from", "", "override sending number (10 national digits)")
		toNumber    = flag.String("to", "", "override recipient number (10 national digits)")
	)
	flag.Parse()

	// optional .env convenience for TWILIO_* overrides
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath, *environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smsdemo: %v\n", err)
		os.Exit(2)
	}

	// Command-line overrides pass the stricter 10-digit gate before use.
	if *fromNumber != "" {
		canonical, err := phone.StrictNational(*fromNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "smsdemo: from_number: %v\n", err)
			os.Exit(2)
		}
		cfg.FromNumber = canonical
	}
	if *toNumber != "" {
		canonical, err := phone.StrictNational(*toNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "smsdemo: to_number: %v\n", err)
			os.Exit(2)
		}
		cfg.ToNumber = canonical
	}

	logger := logging.New(cfg.LogLevel)

	client, err := twilioclient.New(twilioclient.Config{
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		Timeout:    10 * time.Second,
		MaxRetries: 1,
		Logger:     logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create twilio client", "error", err)
		os.Exit(1)
	}

	gw := gateway.New(cfg, client, logger, metrics.NewGatewayMetrics(nil))
	logger.Info("demo started", "identity", cfg.Identity())
	run(context.Background(), gw, logger)
}

func run(ctx context.Context, gw *gateway.Client, logger *logging.Logger) {
	start := time.Now()

	// step 1: send test SMS with random payload to the validated to_number
	sid, err := gw.SendText(ctx, gw.ToNumber(), gw.ComposeRandomMessage())
	if err != nil {
		logger.Error("send failed, continuing", "error", err)
	}

	if sid != "" {
		// step 2: extract the test message before redaction
		if _, err := gw.ExtractSingleMessage(ctx, sid, "before_redaction.json"); err != nil {
			logger.Error("pre-redaction extract failed, continuing", "error", err)
		}
		// step 3: redact the message body
		if !gw.RedactMessageBody(ctx, sid) {
			logger.Error("redaction failed, continuing", "sid", sid)
		}
		// step 4: validate redaction results
		if _, err := gw.ExtractSingleMessage(ctx, sid, "after_redaction.json"); err != nil {
			logger.Error("post-redaction extract failed, continuing", "error", err)
		}
		// step 5: delete the test message
		if !gw.DeleteMessage(ctx, sid) {
			logger.Error("delete failed, continuing", "sid", sid)
		}
	} else {
		logger.Warn("no message sid, skipping per-message steps")
	}

	// step 6: extract the entire account history
	if _, err := gw.ExtractAllMessages(ctx, "text_message_history.json"); err != nil {
		if errors.Is(err, gateway.ErrNoMessages) {
			logger.Warn("account history is empty")
		} else {
			logger.Error("history extract failed", "error", err)
		}
	}

	logger.Info("demo finished", "elapsed", time.Since(start).Round(10*time.Millisecond).String())
}
