// Package bridge ties mount resolution, segment creation and the resident
// wait together into one bridge invocation.
//
// The bridge exists so that a guest program running under Wine/Proton
// allocates its named shared memory on top of files native host processes
// can open. It must therefore outlive the guest: once the batch is mapped
// the process parks until interrupted, holding every mapping.
package bridge

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/marmos91/shmbridge/internal/bytesize"
	"github.com/marmos91/shmbridge/internal/logger"
	"github.com/marmos91/shmbridge/pkg/metrics"
	"github.com/marmos91/shmbridge/pkg/segment"
)

// Resolver locates the in-memory mount hosting the backing files.
// *mount.Resolver is the production implementation.
type Resolver interface {
	Resolve(required bytesize.ByteSize) (string, error)
}

// Options configures a Bridge.
type Options struct {
	// Specs is the validated segment batch to realize.
	Specs []segment.Spec

	// Resolver locates the backing mount.
	Resolver Resolver

	// Metrics receives segment lifecycle observations; may be nil.
	Metrics segment.Metrics

	// Ops is the optional metrics/health server; may be nil.
	Ops *metrics.Server

	// Out receives the user-facing progress lines. Defaults to stdout.
	Out io.Writer
}

// Bridge owns the resident mapping state for one invocation: every live
// segment handle in one place, with a single release routine shared by the
// shutdown and rollback paths.
type Bridge struct {
	opts  Options
	out   io.Writer
	runID string
}

// New creates a Bridge. Specs must already have passed the caller-boundary
// validation in segment.BuildSpecs.
func New(opts Options) *Bridge {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Bridge{
		opts:  opts,
		out:   out,
		runID: uuid.NewString(),
	}
}

// Run realizes the batch and stays resident until ctx is cancelled, then
// tears everything down in reverse creation order.
//
// No readiness line is printed until the whole batch is mapped: the guest
// may begin attaching as soon as any single named segment exists, so
// partial readiness would hand it a half-created batch.
func (b *Bridge) Run(ctx context.Context) error {
	log := logger.With(logger.KeyRunID, b.runID)

	required := segment.TotalSize(b.opts.Specs)
	dir, err := b.opts.Resolver.Resolve(required)
	if err != nil {
		return fmt.Errorf("resolve shm mount: %w", err)
	}

	fmt.Fprintf(b.out, "Found a tmpfs filesystem at %s\n", dir)
	log.Info("resolved shm mount", logger.KeyMount, dir, "required", required.Uint64())

	if b.opts.Ops != nil {
		b.opts.Ops.Start()
		defer func() {
			if err := b.opts.Ops.Shutdown(context.Background()); err != nil {
				log.Warn("ops server shutdown", logger.KeyError, err)
			}
		}()
	}

	manager := segment.NewManager(dir, b.opts.Metrics)
	if err := manager.Create(b.opts.Specs); err != nil {
		return err
	}

	for _, seg := range manager.Segments() {
		fmt.Fprintf(b.out, "Created a tmpfs backed mapping for %s with size %d\n",
			seg.Name, seg.Size.Uint64())
	}

	if b.opts.Ops != nil {
		b.opts.Ops.SetReady(true)
	}
	fmt.Fprintln(b.out, "All mappings were successfully created, press CTRL-C to exit.")
	log.Info("bridge ready", "segments", len(manager.Segments()))

	// Resident wait: unbounded on purpose, the bridge must outlive the
	// guest. Cancellation arrives only through ctx.
	<-ctx.Done()

	fmt.Fprintln(b.out, "\nShutting down.")
	log.Info("termination requested, tearing down")

	if err := manager.Teardown(); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	return nil
}

// CleanUp removes stale backing files by name, for recovery after a run
// that never got to tear down. Sizes are not needed; the resolver is only
// asked for a writable mount, not for capacity.
func CleanUp(r Resolver, names []string) (int, error) {
	dir, err := r.Resolve(0)
	if err != nil {
		return 0, fmt.Errorf("resolve shm mount: %w", err)
	}
	return segment.Cleanup(dir, names)
}
