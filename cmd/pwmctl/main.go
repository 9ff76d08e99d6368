package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"codeberg.org/mutker/pwmctl/internal/config"
	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/history"
	"codeberg.org/mutker/pwmctl/internal/logger"
	"codeberg.org/mutker/pwmctl/internal/pid"
	"codeberg.org/mutker/pwmctl/internal/publish"
	"codeberg.org/mutker/pwmctl/internal/pwm"
	"codeberg.org/mutker/pwmctl/internal/sysfs"
	"github.com/spf13/pflag"
)

const (
	exitOK    = 0
	exitError = 1
	// Listing exits -1, scripts rely on it to tell "nothing was set".
	exitList = -1

	setArgCount = 4
)

type app struct {
	cfg       *config.Config
	sys       sysfs.Sysfs
	log       logger.Logger
	history   history.Recorder
	publisher publish.Publisher
	out       io.Writer
	now       func() time.Time
}

// request is a parsed "<chip> <index> <frequency> <ratio>" invocation.
type request struct {
	chipPath  string
	index     int
	frequency int64
	ratio     float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitError
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return exitError
	}
	log := logger.Default()
	log.Debug().Str("sysfs_root", cfg.SysfsRoot).Msg("Config loaded")

	rec, err := history.NewService(history.Config{
		Enabled: cfg.History || cfg.ShowHistory > 0,
		DBPath:  cfg.HistoryDB,
	}, log)
	if err != nil {
		logError(log, err, "failed to open history")
		return exitError
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logError(log, err, "failed to close history")
		}
	}()

	pub := newPublisher(cfg, log)
	defer pub.Close()

	a := &app{
		cfg:       cfg,
		sys:       sysfs.NewOS(cfg.SysfsRoot),
		log:       log,
		history:   rec,
		publisher: pub,
		out:       out,
		now:       time.Now,
	}

	return a.dispatch(context.Background())
}

// newPublisher falls back to a no-op publisher when the broker is
// unreachable; the channel still gets configured.
func newPublisher(cfg *config.Config, log logger.Logger) publish.Publisher {
	if cfg.MQTTBroker == "" {
		return publish.Noop{}
	}

	p, err := publish.NewRealPublisher(cfg.MQTTBroker, cfg.MQTTTopic)
	if err != nil {
		log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT unavailable, not publishing")
		return publish.Noop{}
	}

	return p
}

func (a *app) dispatch(ctx context.Context) int {
	if a.cfg.ShowHistory > 0 {
		if err := a.showHistory(ctx, a.cfg.ShowHistory); err != nil {
			logError(a.log, err, "failed to read history")
			return exitError
		}
		return exitOK
	}

	if len(a.cfg.Args) != setArgCount {
		if a.cfg.GetOutput() == config.OutputText {
			a.usage()
		}
		if err := a.list(); err != nil {
			logError(a.log, err, "failed to list PWM chips")
			return exitError
		}
		return exitList
	}

	req, err := parseRequest(a.cfg.Args)
	if err != nil {
		logError(a.log, err, "invalid arguments")
		return exitError
	}

	if err := a.set(ctx, req); err != nil {
		logError(a.log, err, "failed to configure PWM")
		return exitError
	}

	return exitOK
}

func (a *app) usage() {
	fmt.Fprintln(a.out, "Usage:")
	fmt.Fprintln(a.out, "  to list PWMs: pwmctl")
	fmt.Fprintln(a.out, "  to set a PWM: pwmctl <sysfs path of PWMChip> <pwm number> <frequency in hz> <duty cycle as float>")
}

func parseRequest(args []string) (request, error) {
	errFactory := errors.New()

	index, err := strconv.Atoi(args[1])
	if err != nil {
		return request{}, errFactory.Wrap(errors.ErrInvalidArgument, err).WithMessage("pwm number must be an integer")
	}
	if index < 0 {
		return request{}, errFactory.WithData(errors.ErrInvalidArgument, index).WithMessage("pwm number must not be negative")
	}

	frequency, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return request{}, errFactory.Wrap(errors.ErrInvalidArgument, err).WithMessage("frequency must be an integer")
	}

	ratio, err := strconv.ParseFloat(args[3], 64)
	if err != nil || math.IsNaN(ratio) {
		return request{}, errFactory.Wrap(errors.ErrInvalidArgument, err).WithMessage("duty cycle must be a number")
	}

	return request{
		chipPath:  args[0],
		index:     index,
		frequency: frequency,
		ratio:     math.Max(0, math.Min(1, ratio)),
	}, nil
}

func (a *app) set(ctx context.Context, req request) error {
	errFactory := errors.New()
	// Lock the canonical path, a chip reached through /sys/class and through
	// /sys/devices is the same hardware.
	chip := pwm.NewChip(a.sys, a.sys.Resolve(req.chipPath), a.log)

	lock, err := pid.Acquire(a.cfg.LockDir, chip.ChannelPath(req.index))
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ch, err := chip.Export(req.index)
	if err != nil {
		return errFactory.Wrap(errors.ErrConfigureChan, err)
	}

	fmt.Fprintf(a.out, "configuring pwm at %s\n", ch.Path())

	if req.ratio > 0 {
		fmt.Fprintf(a.out, "frequency is %d and duty cycle is %g%%\n", req.frequency, req.ratio*100)
		if err := ch.SetFrequencyAndRatio(req.frequency, req.ratio); err != nil {
			return errFactory.Wrap(errors.ErrConfigureChan, err)
		}
		if err := ch.SetEnabled(true); err != nil {
			return errFactory.Wrap(errors.ErrConfigureChan, err)
		}
	} else {
		fmt.Fprintln(a.out, "requested duty cycle is 0%, turning off PWM")
		if err := ch.SetEnabled(false); err != nil {
			return errFactory.Wrap(errors.ErrConfigureChan, err)
		}
	}

	a.report(ctx, ch)

	return nil
}

// report records and publishes the applied state. Failures here are logged,
// the channel is already configured.
func (a *app) report(ctx context.Context, ch pwm.Controller) {
	state, err := ch.State()
	if err != nil {
		logError(a.log, err, "failed to read back channel state")
		return
	}

	a.log.Info().
		Str("channel", state.Path).
		Int64("period_ns", state.Period.Nanoseconds()).
		Int64("duty_cycle_ns", state.DutyCycle.Nanoseconds()).
		Bool("enabled", state.Enabled).
		Bool("inverted", state.Inverted).
		Msg("Channel configured")

	if err := a.history.Record(ctx, &history.Snapshot{
		Timestamp: a.now(),
		Chip:      state.Chip,
		Channel:   state.Channel,
		Period:    state.Period,
		DutyCycle: state.DutyCycle,
		Enabled:   state.Enabled,
		Inverted:  state.Inverted,
	}); err != nil {
		logError(a.log, errors.New().Wrap(errors.ErrRecordHistory, err), "failed to record history")
	}

	if err := a.publisher.PublishState(state); err != nil {
		logError(a.log, errors.New().Wrap(errors.ErrPublishState, err), "failed to publish state")
	}
}

func logError(log logger.Logger, err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		log.ErrorWithCode(coded).Msg(msg)
		return
	}

	log.Error().Err(err).Msg(msg)
}
