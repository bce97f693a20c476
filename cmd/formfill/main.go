// Command formfill loads a form document (JSON or YAML) and fills it
// interactively in the terminal, submitting the response to a form service
// when one is configured.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/parishkit/formengine/pkg/client"
	"github.com/parishkit/formengine/pkg/renderers/tui"
	"github.com/parishkit/formengine/pkg/runtime"
	"github.com/parishkit/formengine/pkg/schema"
	"github.com/parishkit/formengine/pkg/validate"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "formfill:", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "form document to fill (json or yaml)")
	slug := flag.String("slug", "", "form slug on the service")
	serviceURL := flag.String("service", os.Getenv("FORMSVC_URL"), "form service base URL")
	locale := flag.String("locale", "", "display locale")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *file == "" {
		return errors.New("-file is required")
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync()
	}

	document, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	form, err := schema.Decode(document)
	if err != nil {
		return err
	}
	if issues := schema.Check(form); len(issues) > 0 {
		return fmt.Errorf("form document is inconsistent: %s", issues[0].Message)
	}
	if issues := validate.BoundsIssues(form); len(issues) > 0 {
		return fmt.Errorf("form document has bounds violations: %s", issues[0].Message)
	}

	opts := []runtime.Option{runtime.WithLogger(logger)}
	if *serviceURL != "" {
		svc := client.New(*serviceURL, client.WithLogger(logger))
		opts = append(opts,
			runtime.WithResponseService(svc),
			runtime.WithPaymentService(svc),
			runtime.WithTranslationService(svc),
		)
	} else {
		opts = append(opts, runtime.WithResponseService(printResponses{}))
	}

	controller := runtime.New(form, *slug, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filler := tui.NewFiller(tui.WithLocale(*locale))
	return filler.Run(ctx, controller)
}

// printResponses is the offline sink used when no service is configured.
type printResponses struct{}

func (printResponses) SubmitResponse(ctx context.Context, slug string, payload runtime.SubmissionPayload) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(encoded))
	return err
}

func (printResponses) FinalizeOrder(ctx context.Context, slug, token, payerID string) error {
	return nil
}

func (printResponses) PaymentConfig(ctx context.Context, slug string) (runtime.PaymentConfig, error) {
	return runtime.PaymentConfig{}, nil
}
