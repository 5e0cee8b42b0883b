package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/sequence/pkg/domain"
	"github.com/aretw0/sequence/pkg/pipeline"
)

// ErrRunRejected is returned when a run settles as rejected.
var ErrRunRejected = errors.New("run rejected")

// RunFile loads a single pipeline file, runs it with arg and prints the
// outcome to out.
func RunFile(ctx context.Context, opts RunOptions, path, arg string, out io.Writer) error {
	def, err := pipeline.LoadFile(path)
	if err != nil {
		return err
	}

	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Add(def); err != nil {
		return err
	}

	record, err := app.Runner.Run(ctx, def.Name, ParseArg(arg))
	if err != nil {
		return err
	}
	if err := printRecord(out, record, opts.JSON); err != nil {
		return err
	}
	if record.Status == domain.RunRejected {
		return fmt.Errorf("%w: %s", ErrRunRejected, record.Error)
	}
	return nil
}

// Show prints a stored run record.
func Show(ctx context.Context, opts RunOptions, runID string, out io.Writer) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Runner.Get(ctx, runID)
	if err != nil {
		return err
	}
	return printJSON(out, record)
}

func printRecord(out io.Writer, record *domain.RunRecord, full bool) error {
	if full {
		return printJSON(out, record)
	}
	if record.Status == domain.RunRejected {
		return nil
	}
	return printJSON(out, record.Result)
}
