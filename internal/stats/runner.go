package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jchantrell/twmap/internal/database"
	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/utils"
	"golang.org/x/sync/errgroup"
)

// OpenFunc opens one batch argument
type OpenFunc func(ctx context.Context, path string) (*datafile.Reader, error)

// OpenLocal opens path from the local filesystem
func OpenLocal(_ context.Context, path string) (*datafile.Reader, error) {
	return datafile.Open(path)
}

// Options configures a Runner
type Options struct {
	// Jobs bounds how many files are open at once; values below 1 mean 1
	Jobs int

	// VerifyData reads every data entry, so payload errors count as failures
	VerifyData bool

	// Progress draws a progress bar on stderr
	Progress bool

	// Open opens each argument; OpenLocal when nil
	Open OpenFunc

	// Run receives every result when set
	Run *database.Run
}

// Result is the outcome of one file
type Result struct {
	Path     string
	Err      error
	Info     FileInfo
	Duration time.Duration
}

// Report is the outcome of a batch. Results follow the argument order.
type Report struct {
	Results  []Result
	Errors   *ErrorStats
	Summary  *Summary
	Duration time.Duration
}

// Runner processes a batch of datafiles with bounded parallelism
type Runner struct {
	opts Options
}

// NewRunner creates a Runner
func NewRunner(opts Options) *Runner {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Open == nil {
		opts.Open = OpenLocal
	}
	return &Runner{opts: opts}
}

// Run processes every path. File failures are part of the report; the
// returned error is reserved for cancellation and result store failures.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	report := &Report{
		Results: make([]Result, len(paths)),
		Errors:  NewErrorStats(),
		Summary: NewSummary(),
	}

	progress := utils.NewProgress(len(paths), r.opts.Progress)
	defer progress.Finish()

	// sqlite allows a single writer, so Run.Record calls are serialized.
	var mu, recordMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := r.process(gctx, path)

			if r.opts.Run != nil {
				recordMu.Lock()
				err := r.opts.Run.Record(gctx, toFileResult(res))
				recordMu.Unlock()
				if err != nil {
					return fmt.Errorf("recording %s: %w", path, err)
				}
			}

			mu.Lock()
			report.Results[i] = res
			report.Errors.Record(res.Err)
			if res.Err == nil {
				report.Summary.Add(res.Info)
			}
			mu.Unlock()

			progress.Increment(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (r *Runner) process(ctx context.Context, path string) Result {
	start := time.Now()
	res := Result{Path: path}

	reader, err := r.opts.Open(ctx, path)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		slog.Debug("Failed to open datafile", "path", path, "error", err)
		return res
	}

	res.Info = Inspect(reader)
	if r.opts.VerifyData {
		res.Err = verifyData(reader)
	}
	if err := reader.Close(); err != nil && res.Err == nil {
		res.Err = err
	}

	res.Duration = time.Since(start)
	slog.Debug("Processed datafile",
		"path", path,
		"version", res.Info.Version.String(),
		"items", res.Info.NumItems,
		"data", res.Info.NumData,
		"error", res.Err)
	return res
}

// verifyData reads every payload and returns the first failure
func verifyData(r *datafile.Reader) error {
	it := r.DataIter()
	for it.Next() {
		if _, err := it.Data(); err != nil {
			return fmt.Errorf("data entry %d: %w", it.Index(), err)
		}
	}
	return nil
}

// Print writes failures as "path: error", the error tallies, a separator and
// the summary of readable files.
func (rep *Report) Print(w io.Writer) error {
	for _, res := range rep.Results {
		if res.Err == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %v\n", res.Path, res.Err); err != nil {
			return err
		}
	}
	if err := rep.Errors.Print(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "--------"); err != nil {
		return err
	}
	return rep.Summary.Print(w)
}

func toFileResult(res Result) database.FileResult {
	fr := database.FileResult{
		Path:     res.Path,
		Status:   database.StatusOK,
		Duration: res.Duration,
	}

	if res.Err != nil {
		fr.Error = res.Err.Error()
		if fe, ok := datafile.FormatError(res.Err); ok {
			fr.Status = database.StatusFormat
			fr.ErrorKind = fe.Kind.String()
		} else {
			fr.Status = database.StatusStorage
			var de *datafile.Error
			if !errors.As(res.Err, &de) {
				fr.ErrorKind = "open"
			}
		}
	}

	// A payload failure under VerifyData still has a readable index.
	if res.Info.Version != 0 {
		fr.Version = int(res.Info.Version)
		fr.NumItemTypes = len(res.Info.ItemTypes)
		fr.NumItems = res.Info.NumItems
		fr.NumData = res.Info.NumData
		fr.DataBytes = res.Info.DataBytes
		for _, t := range res.Info.ItemTypes {
			fr.ItemTypes = append(fr.ItemTypes, database.ItemTypeCount{TypeID: t.ID, Num: t.Num})
		}
	}

	return fr
}
