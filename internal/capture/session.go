// Package capture drives a host through every view of a light-field grid.
//
// A session reads the host's camera pose and render config, moves the camera
// to each grid sample, captures it under an identifier-derived file name and
// restores the original pose and config on every exit path.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/linusmossberg/light-field-renderer/internal/host"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

var (
	// ErrRestore marks a failure to put the host back into its original state.
	// It is always returned, combined with any capture error.
	ErrRestore = errors.New("restore host state")
	// ErrIncomplete is returned by Continue sessions in which some views failed.
	ErrIncomplete = errors.New("capture incomplete")
)

// DefaultUnitScale converts millimetre grid offsets into metre scene units.
const DefaultUnitScale = 1e-3

// Session status values passed to Recorder.FinishSession.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Policy decides what a session does when a single capture fails.
type Policy int

const (
	// Abort stops at the first failed capture.
	Abort Policy = iota
	// Continue logs the failure and moves on to the next view.
	Continue
)

func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Continue:
		return "continue"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts "abort" or "continue". The empty string is Abort.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "abort":
		return Abort, nil
	case "continue":
		return Continue, nil
	}
	return 0, fmt.Errorf("unknown capture policy %q", s)
}

// View is one captured (or attempted) grid sample.
type View struct {
	Sample     lightfield.Sample
	Identifier string
	Path       string
	Seed       int64
	Duration   time.Duration
	Skipped    bool
}

// Failure is a view whose capture failed under the Continue policy.
type Failure struct {
	View View
	Err  error
}

// Result summarizes a session.
type Result struct {
	SessionID string
	Views     []View
	Failed    []Failure
}

// Info describes a session to a Recorder.
type Info struct {
	ID        string
	Camera    string
	Grid      lightfield.Grid
	Lens      host.Lens
	Dir       string
	StartedAt time.Time
}

// Recorder persists session progress, for example into a manifest database.
type Recorder interface {
	BeginSession(ctx context.Context, info Info) error
	RecordView(ctx context.Context, sessionID string, v View, captureErr error) error
	FinishSession(ctx context.Context, sessionID, status string) error
}

// Progress is reported after every view.
type Progress struct {
	Done  int
	Total int
	View  View
	Err   error
}

// Options configures Run.
type Options struct {
	Grid lightfield.Grid
	// Name prefixes every identifier. Empty means the host camera name.
	Name string
	// Dir receives the captured images.
	Dir string
	// Extension selects the image format, ".png" by default.
	Extension string
	// Format prints the identifier fields. Nil means lightfield.DefaultFormat.
	Format *lightfield.FormatPolicy
	// UnitScale converts grid offsets into scene units. Zero means DefaultUnitScale.
	UnitScale float64
	Policy    Policy
	// SkipExisting leaves views whose file already exists untouched.
	SkipExisting bool

	Recorder Recorder
	Logger   *zap.SugaredLogger
	Progress func(Progress)
}

func (o Options) prepare(h host.Context) (Options, error) {
	if err := o.Grid.Validate(); err != nil {
		return o, fmt.Errorf("grid: %w", err)
	}
	if o.Name == "" {
		o.Name = h.CameraName()
	}
	if err := lightfield.ValidateName(o.Name); err != nil {
		return o, err
	}
	if o.Format == nil {
		f := lightfield.DefaultFormat
		o.Format = &f
	}
	if err := o.Format.Validate(); err != nil {
		return o, fmt.Errorf("format: %w", err)
	}
	if o.Extension == "" {
		o.Extension = ".png"
	}
	if !strings.HasPrefix(o.Extension, ".") {
		o.Extension = "." + o.Extension
	}
	if o.UnitScale == 0 {
		o.UnitScale = DefaultUnitScale
	}
	if o.UnitScale < 0 {
		return o, fmt.Errorf("unit scale must be positive, got %v", o.UnitScale)
	}
	if o.Policy != Abort && o.Policy != Continue {
		return o, fmt.Errorf("invalid policy %v", o.Policy)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o, nil
}

// Run captures every view of opts.Grid on h in row-major order.
//
// The host pose and render config are read before the first capture and
// written back when Run returns, whatever the outcome. A failed restore is
// reported as ErrRestore alongside any other error.
func Run(ctx context.Context, h host.Context, opts Options) (res Result, err error) {
	opts, err = opts.prepare(h)
	if err != nil {
		return res, err
	}
	logger := opts.Logger

	basePose, err := h.Pose()
	if err != nil {
		return res, fmt.Errorf("read pose: %w", err)
	}
	baseCfg, err := h.RenderConfig()
	if err != nil {
		return res, fmt.Errorf("read render config: %w", err)
	}
	lens := h.Lens()
	res.SessionID = uuid.NewString()
	info := Info{
		ID:        res.SessionID,
		Camera:    opts.Name,
		Grid:      opts.Grid,
		Lens:      lens,
		Dir:       opts.Dir,
		StartedAt: time.Now().UTC(),
	}
	if opts.Recorder != nil {
		if err := opts.Recorder.BeginSession(ctx, info); err != nil {
			return res, fmt.Errorf("begin session: %w", err)
		}
		// Registered before the restore so it sees the restore error.
		defer func() {
			status := sessionStatus(ctx, err)
			if ferr := opts.Recorder.FinishSession(context.WithoutCancel(ctx), res.SessionID, status); ferr != nil {
				err = multierr.Append(err, fmt.Errorf("finish session: %w", ferr))
			}
		}()
	}
	defer func() {
		if rerr := restore(h, basePose, baseCfg); rerr != nil {
			logger.Errorw("host state not restored", "error", rerr)
			err = multierr.Append(err, rerr)
		}
	}()

	total := opts.Grid.Len()
	logger.Infow("capture started",
		"session", res.SessionID,
		"camera", opts.Name,
		"views", total,
		"baseline_x", opts.Grid.Horizontal.Baseline(),
		"baseline_y", opts.Grid.Vertical.Baseline(),
		"dir", opts.Dir)

	var failures []error
	done := 0
	for s := range opts.Grid.Samples() {
		if cerr := ctx.Err(); cerr != nil {
			return res, cerr
		}

		id := opts.Format.Format(lightfield.Identifier{
			Name:        opts.Name,
			Row:         s.Row,
			Column:      s.Column,
			U:           s.U,
			V:           s.V,
			FocalLength: lens.FocalLength,
			SensorWidth: lens.SensorWidth,
		})
		view := View{
			Sample:     s,
			Identifier: id,
			Path:       filepath.Join(opts.Dir, id+opts.Extension),
			Seed:       int64(s.Index),
		}

		var cerr error
		if opts.SkipExisting && exists(view.Path) {
			view.Skipped = true
		} else {
			start := time.Now()
			cerr = captureView(ctx, h, basePose.At(s, opts.UnitScale), baseCfg, view)
			view.Duration = time.Since(start)
		}
		done++

		if opts.Recorder != nil {
			if rerr := opts.Recorder.RecordView(ctx, res.SessionID, view, cerr); rerr != nil {
				return res, multierr.Append(cerr, fmt.Errorf("record view %s: %w", id, rerr))
			}
		}
		if opts.Progress != nil {
			opts.Progress(Progress{Done: done, Total: total, View: view, Err: cerr})
		}

		if cerr != nil {
			if ctx.Err() != nil || opts.Policy == Abort {
				return res, fmt.Errorf("view %02d,%02d: %w", s.Row, s.Column, cerr)
			}
			logger.Warnw("capture failed, continuing", "row", s.Row, "column", s.Column, "error", cerr)
			res.Failed = append(res.Failed, Failure{View: view, Err: cerr})
			failures = append(failures, cerr)
			continue
		}

		logger.Debugw("view captured",
			"row", s.Row, "column", s.Column, "u", s.U, "v", s.V,
			"path", view.Path, "skipped", view.Skipped, "duration", view.Duration)
		res.Views = append(res.Views, view)
	}

	if len(failures) > 0 {
		return res, fmt.Errorf("%w: %d of %d views failed: %w", ErrIncomplete, len(failures), total, multierr.Combine(failures...))
	}
	logger.Infow("capture finished", "session", res.SessionID, "views", len(res.Views))
	return res, nil
}

func captureView(ctx context.Context, h host.Context, pose lightfield.Pose, base host.RenderConfig, view View) error {
	if err := h.SetPose(pose); err != nil {
		return fmt.Errorf("set pose: %w", err)
	}
	cfg := base
	cfg.Seed = view.Seed
	if err := h.SetRenderConfig(cfg); err != nil {
		return fmt.Errorf("set render config: %w", err)
	}
	if _, err := h.Capture(ctx, view.Path); err != nil {
		return err
	}
	return nil
}

// restore writes back the pose and render config even if one of them fails.
func restore(h host.Context, pose lightfield.Pose, cfg host.RenderConfig) error {
	var err error
	if perr := h.SetPose(pose); perr != nil {
		err = multierr.Append(err, fmt.Errorf("pose: %w", perr))
	}
	if cerr := h.SetRenderConfig(cfg); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("render config: %w", cerr))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRestore, err)
	}
	return nil
}

func sessionStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return StatusComplete
	case ctx.Err() != nil:
		return StatusCancelled
	case errors.Is(err, ErrIncomplete):
		return StatusIncomplete
	default:
		return StatusFailed
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
