package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/clients"
	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/api/handlers"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/logging"
)

// ErrEntriesFailed is returned when at least one invoice could not be
// reconciled. Results for the others are still printed.
var ErrEntriesFailed = errors.New("some invoices could not be reconciled")

// RunReconcile reconciles every request in the input and prints the results
// to stdout. Logs go to stderr.
func RunReconcile(ctx context.Context, cfg *config.Config, flags *ReconcileFlags, stdout, stderr io.Writer) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerTo(stderr, loggingCfg)

	input, err := OpenInput(flags.Input)
	if err != nil {
		return err
	}
	defer func() { _ = input.Close() }()

	bodies, err := ReadRequests(input)
	if err != nil {
		return err
	}

	c, err := clients.NewClients(cfg, logger, clients.Options{NoAudit: flags.NoAudit})
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	// Conversion failures are reported in place; the rest go to the service
	// as one batch.
	convErrs := make([]error, len(bodies))
	reqs := make([]service.Request, 0, len(bodies))
	positions := make([]int, 0, len(bodies))
	for i, body := range bodies {
		invoice, candidates, err := body.ToDocuments()
		if err != nil {
			convErrs[i] = err
			continue
		}
		reqs = append(reqs, service.Request{Invoice: invoice, Candidates: candidates, Extensions: body.Extensions})
		positions = append(positions, i)
	}

	outcomes := make([]*service.Outcome, len(bodies))
	errs := convErrs
	for _, r := range c.Service.ReconcileBatch(ctx, reqs) {
		i := positions[r.Index]
		outcomes[i] = r.Outcome
		errs[i] = r.Err
	}

	var summary Summary
	for i := range bodies {
		summary.Add(outcomes[i], errs[i])
	}

	if flags.JSON {
		if err := PrintJSON(stdout, batchResponse(outcomes, errs, summary)); err != nil {
			return err
		}
	} else {
		PrintHeader(stdout, len(bodies), !flags.NoAudit)
		for i, body := range bodies {
			if errs[i] != nil {
				PrintFailure(stdout, body.Invoice.ID, errs[i])
				continue
			}
			PrintOutcome(stdout, body.Invoice.ID, outcomes[i], flags.Verbose)
		}
		PrintSummary(stdout, summary)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("%w: %d of %d", ErrEntriesFailed, summary.Errors, summary.Total())
	}
	return nil
}

func batchResponse(outcomes []*service.Outcome, errs []error, summary Summary) dto.BatchReconcileResponse {
	resp := dto.BatchReconcileResponse{
		Results:   make([]dto.BatchEntryResponse, len(outcomes)),
		Succeeded: summary.Total() - summary.Errors,
		Failed:    summary.Errors,
	}
	for i := range outcomes {
		if errs[i] != nil {
			_, apiErr := handlers.ErrorResponse(errs[i])
			// Local runs show the cause instead of the generic message
			apiErr.Message = errs[i].Error()
			resp.Results[i] = dto.BatchEntryResponse{Index: i, Error: &apiErr}
			continue
		}
		result := dto.NewReconcileResponse(outcomes[i])
		resp.Results[i] = dto.BatchEntryResponse{Index: i, Result: &result}
	}
	return resp
}

// ExitCode maps a command error to a process exit code: 0 for success, 1
// for partial failure, 2 for anything that stopped the run.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrEntriesFailed):
		return 1
	default:
		return 2
	}
}
