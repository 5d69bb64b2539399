// SPDX-License-Identifier: EPL-2.0

package dawcore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/config"
	"github.com/ik5/dawcore/device"
	"github.com/ik5/dawcore/engine"
	"github.com/ik5/dawcore/plugin"
	"github.com/ik5/dawcore/plugin/builtin"
	"github.com/ik5/dawcore/project"
)

type settings struct {
	engine      engine.Config
	logger      *slog.Logger
	pluginPaths []string
	assetPaths  []string
	resolver    asset.Resolver
	controller  []engine.Option
}

// Option configures a Session.
type Option func(*settings)

// WithLogger sets the logger of the session and everything it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithEngineConfig replaces engine.DefaultConfig().
func WithEngineConfig(cfg engine.Config) Option {
	return func(s *settings) { s.engine = cfg }
}

// WithPluginPaths adds directories searched for native plugins.
func WithPluginPaths(dirs ...string) Option {
	return func(s *settings) { s.pluginPaths = append(s.pluginPaths, dirs...) }
}

// WithAssetPaths adds directories searched for the audio files of opened
// projects.
func WithAssetPaths(dirs ...string) Option {
	return func(s *settings) { s.assetPaths = append(s.assetPaths, dirs...) }
}

// WithResolver replaces the directory lookup of project assets.
func WithResolver(r asset.Resolver) Option {
	return func(s *settings) { s.resolver = r }
}

// WithControllerOptions passes options through to engine.New.
func WithControllerOptions(opts ...engine.Option) Option {
	return func(s *settings) { s.controller = append(s.controller, opts...) }
}

// Session is an open project with its plugin host, asset loader and
// engine. It may be played on one device at a time, or bounced offline
// while not attached.
type Session struct {
	ctrl     *engine.Controller
	host     *plugin.Host
	loader   *asset.Loader
	resolver asset.Resolver
	logger   *slog.Logger
	block    int

	mu     sync.Mutex
	output device.Output
}

// New creates an empty session rendering at sampleRate. maxFrames is the
// largest block plugins are prepared for; longer device blocks are split.
// The builtin processors are always registered.
func New(sampleRate, maxFrames int, opts ...Option) (*Session, error) {
	st := settings{engine: engine.DefaultConfig(), logger: slog.Default()}
	for _, o := range opts {
		o(&st)
	}

	host := plugin.NewHost(sampleRate, maxFrames,
		plugin.WithLogger(st.logger),
		plugin.WithSearchPaths(st.pluginPaths...),
	)
	builtin.Register(host)

	loader := asset.NewLoader(sampleRate,
		asset.WithLogger(st.logger),
		asset.WithConcurrency(st.engine.LoadConcurrency),
	)
	if st.resolver == nil {
		st.resolver = &asset.DirResolver{Dirs: st.assetPaths, Loader: loader}
	}

	ctrlOpts := append([]engine.Option{engine.WithLogger(st.logger)}, st.controller...)
	ctrl, err := engine.New(host, st.engine, ctrlOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return &Session{
		ctrl:     ctrl,
		host:     host,
		loader:   loader,
		resolver: st.resolver,
		logger:   st.logger.With("session", ctrl.ID()),
		block:    st.engine.BlockSize,
	}, nil
}

// FromConfig creates a session from a loaded configuration. opts are
// applied after the configured values.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	base := []Option{
		WithEngineConfig(cfg.Engine()),
		WithPluginPaths(cfg.PluginPaths...),
		WithAssetPaths(cfg.AssetPaths...),
	}
	s, err := New(cfg.SampleRate, cfg.MaxBlockSize, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := s.ctrl.SetMeter(ctx, cfg.TimelineMeter()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Controller edits and drives the session.
func (s *Session) Controller() *engine.Controller { return s.ctrl }

// Host is the plugin host. Register factories on it before loading
// projects that use them.
func (s *Session) Host() *plugin.Host { return s.host }

// ImportAudio decodes the file at path to the session rate and adds it
// as an audio asset. Projects refer to it by its base name.
func (s *Session) ImportAudio(ctx context.Context, path string) (int, error) {
	a, err := s.loader.LoadFile(path)
	if err != nil {
		return 0, err
	}
	return s.ctrl.AddAudio(ctx, a)
}

// ImportMidi reads a Standard MIDI File and adds its notes as a MIDI
// asset.
func (s *Session) ImportMidi(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening midi file: %w", err)
	}
	defer f.Close()

	m, err := asset.ReadSMF(f)
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}
	return s.ctrl.AddMidi(ctx, m)
}

// Open replaces the project with the one stored at path. A returned
// error satisfying engine.IsWarning means the project loaded with some
// plugins or assets missing.
func (s *Session) Open(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	defer f.Close()

	if err := s.Read(ctx, f); err != nil {
		if engine.IsWarning(err) {
			return err
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	s.logger.Info("project opened", "path", path)

	return nil
}

// Read replaces the project with a snapshot read from r.
func (s *Session) Read(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading project: %w", err)
	}
	p, err := project.Unmarshal(data)
	if err != nil {
		return err
	}
	return s.ctrl.Load(ctx, p, s.resolver)
}

// Write stores a snapshot of the project in w.
func (s *Session) Write(w io.Writer) error {
	p, err := s.ctrl.Snapshot()
	if err != nil {
		return err
	}
	if _, err := w.Write(project.Marshal(p)); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	return nil
}

// Save stores the project at path. The file is replaced only once the
// snapshot is completely written.
func (s *Session) Save(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := s.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	s.logger.Info("project saved", "path", path)

	return nil
}

// Attach starts out rendering the engine. A device that fails to start
// is reported through the controller as a lost device.
func (s *Session) Attach(out device.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output != nil {
		return ErrAttached
	}

	if err := out.Start(s.ctrl.Engine()); err != nil {
		s.ctrl.DeviceLost(err)
		return &engine.DeviceError{Err: err}
	}
	s.output = out
	s.logger.Info("device attached",
		"sample_rate", out.SampleRate(),
		"channels", out.Channels(),
		"frames_per_buffer", out.FramesPerBuffer(),
	)

	return nil
}

// Detach stops the attached device and the transport. The device is not
// closed.
func (s *Session) Detach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detach(ctx)
}

func (s *Session) detach(ctx context.Context) error {
	if s.output == nil {
		return nil
	}

	err := s.ctrl.Stop(ctx)
	if serr := s.output.Stop(); serr != nil {
		err = errors.Join(err, &engine.DeviceError{Err: serr})
	}
	s.output = nil

	return err
}

// Close detaches the device and releases every plugin.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.detach(context.Background()), s.ctrl.Close())
}
