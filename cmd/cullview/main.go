package main

import (
	"context"
	"os"
	"reflect"
	"runtime"
	"sync"
	"syscall"

	"cullengine/internal/config"
	"cullengine/internal/graphics"
	"cullengine/internal/graphics/renderables/boxes"
	renderer "cullengine/internal/graphics/renderer"
	"cullengine/internal/input"
	"cullengine/internal/spatial"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

var _ = reflect.TypeOf(viewerConfig{})

type viewerConfig struct {
	Width      int    `cli:""        env:"CULLVIEW_WIDTH"       help:"Window width in pixels."`
	Height     int    `cli:""        env:"CULLVIEW_HEIGHT"      help:"Window height in pixels."`
	Boxes      int    `cli:""        env:"CULLVIEW_BOXES"       help:"Number of moving boxes."`
	WorldSize  int    `cli:""        env:"CULLVIEW_WORLD_SIZE"  help:"Half extent of the scene cube."`
	Seed       int    `cli:",hidden" env:"CULLVIEW_SEED"        help:"Scene random seed."`
	Stereo     bool   `cli:""        env:"CULLVIEW_STEREO"      help:"Start in side-by-side stereo."`
	IPD        int    `cli:""        env:"CULLVIEW_IPD"         help:"Interpupillary distance in millimetres."`
	FPSLimit   int    `cli:""        env:"CULLVIEW_FPS_LIMIT"   help:"Frame rate cap, 0 for none."`
	AdminAddr  string `cli:""        env:"CULLVIEW_ADMIN_ADDR"  help:"Admin listening address, empty to disable."`
	ConfigFile string `cli:""        env:"CULLVIEW_CONFIG_FILE" help:"JSON file with culling settings."`
	LogLevel   string `cli:""        env:"CULLVIEW_LOG_LEVEL"   help:"Log level (debug|info|warning|error)."`
	LogIndent  bool   `cli:""        env:"CULLVIEW_LOG_INDENT"  help:"Indent logs."`
	Help       bool   `cli:""        env:"-"                    help:"Show help."`
}

func (c viewerConfig) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.New("window size must be positive").
			WithTag("width", c.Width).
			WithTag("height", c.Height)
	case c.Boxes < 0:
		return errors.New("box count must not be negative").WithTag("boxes", c.Boxes)
	case c.WorldSize <= 0:
		return errors.New("world size must be positive").WithTag("world_size", c.WorldSize)
	case c.IPD < 0:
		return errors.New("ipd must not be negative").WithTag("ipd", c.IPD)
	}
	return nil
}

func (c viewerConfig) eyePosition() mgl32.Vec3 {
	return mgl32.Vec3{0, 0, float32(c.WorldSize) * 1.5}
}

func init() {
	runtime.LockOSThread()
}

func main() {
	conf := viewerConfig{
		Width:     1280,
		Height:    720,
		Boxes:     2000,
		WorldSize: 64,
		Seed:      1,
		IPD:       64,
		FPSLimit:  120,
		AdminAddr: ":18290",
		LogLevel:  logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Opens a window that renders a moving box scene through the culling engine.").
		Options(&conf)
	cli.Load()

	if err := conf.validate(); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if conf.ConfigFile != "" {
		if err := config.LoadAndApply(conf.ConfigFile); err != nil {
			logs.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	if conf.AdminAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveAdmin(ctx, newAdminServer(conf.AdminAddr))
		}()
	}

	if err := run(ctx, conf); err != nil {
		logs.Error(err)
	}
	cancel()
	wg.Wait()
}

func run(ctx context.Context, conf viewerConfig) error {
	if err := glfw.Init(); err != nil {
		return errors.New("initializing glfw failed").Wrap(err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(conf.Width, conf.Height)
	if err != nil {
		return err
	}
	defer window.Destroy()

	if err := gl.Init(); err != nil {
		return errors.New("initializing gl failed").Wrap(err)
	}
	logs.WithTag("version", gl.GoStr(gl.GetString(gl.VERSION))).
		WithTag("renderer", gl.GoStr(gl.GetString(gl.RENDERER))).
		Info("gl context ready")

	boxRenderer := boxes.NewBoxes()
	fbw, fbh := window.GetFramebufferSize()
	r, err := renderer.NewRenderer(fbw, fbh, boxRenderer)
	if err != nil {
		return err
	}
	defer r.Dispose()

	backend, err := graphics.NewQueryBackend()
	if err != nil {
		return err
	}
	defer backend.Dispose()

	half := float32(conf.WorldSize)
	p, err := spatial.NewPartition("cullview", mgl32.Vec3{}, half, spatial.WithBackend(backend))
	if err != nil {
		return err
	}
	defer p.Destroy()

	scene, err := NewScene(p, conf.Boxes, half, int64(conf.Seed))
	if err != nil {
		return err
	}

	im := input.NewInputManager()
	im.Attach(window)

	loop := NewViewLoop(window, r, boxRenderer, backend, p, scene, im, conf)
	setupCallbacks(window, r, loop)

	logs.WithTag("boxes", scene.Len()).
		WithTag("stereo", conf.Stereo).
		WithTag("admin_addr", conf.AdminAddr).
		Info("starting viewer")

	loop.Run(ctx.Done())
	return nil
}
