package main

import (
	"time"

	"cullengine/internal/camera"
	"cullengine/internal/config"
	"cullengine/internal/graphics"
	"cullengine/internal/graphics/renderables/boxes"
	renderer "cullengine/internal/graphics/renderer"
	"cullengine/internal/input"
	"cullengine/internal/profiling"
	"cullengine/internal/spatial"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// eye is one camera pass: the camera, its visible set and where it lands
// in the window.
type eye struct {
	cam *camera.Camera
	set spatial.VisibleSet

	// left half, right half or the whole window
	x, w func(width int) int
}

func fullX(int) int    { return 0 }
func fullW(w int) int  { return w }
func rightX(w int) int { return w / 2 }
func halfW(w int) int  { return w / 2 }

// ViewLoop runs the viewer frame: simulate, cull, draw, query.
type ViewLoop struct {
	window    *glfw.Window
	renderer  *renderer.Renderer
	boxes     *boxes.Boxes
	backend   *graphics.QueryBackend
	partition *spatial.Partition
	scene     *Scene
	input     *input.InputManager
	head      *FlyCamera

	mono   eye
	stereo [2]eye
	ipd    float32

	paused     bool
	stereoMode bool
	motion     bool
	frozen     bool

	fpsLimiter *FPSLimiter

	// timing
	frames           int
	lastFPSCheckTime time.Time
	lastTime         time.Time
}

func NewViewLoop(window *glfw.Window, r *renderer.Renderer, b *boxes.Boxes, backend *graphics.QueryBackend,
	p *spatial.Partition, s *Scene, im *input.InputManager, conf viewerConfig) *ViewLoop {
	head := NewFlyCamera(conf.eyePosition())
	return &ViewLoop{
		window:    window,
		renderer:  r,
		boxes:     b,
		backend:   backend,
		partition: p,
		scene:     s,
		input:     im,
		head:      head,
		mono: eye{
			cam: camera.New(visibility.SlotWorld, r.Lens().ProjectionMatrix(), head.ViewMatrix()),
			x:   fullX,
			w:   fullW,
		},
		stereo: [2]eye{
			{cam: camera.New(visibility.SlotLeftEye, r.Lens().ProjectionMatrix(), head.ViewMatrix()), x: fullX, w: halfW},
			{cam: camera.New(visibility.SlotRightEye, r.Lens().ProjectionMatrix(), head.ViewMatrix()), x: rightX, w: halfW},
		},
		ipd:              float32(conf.IPD) / 1000,
		stereoMode:       conf.Stereo,
		motion:           true,
		fpsLimiter:       NewFPSLimiter(conf.FPSLimit),
		lastFPSCheckTime: time.Now(),
		lastTime:         time.Now(),
	}
}

// Run blocks until the window is closed or done is closed.
func (v *ViewLoop) Run(done <-chan struct{}) {
	for !v.window.ShouldClose() {
		select {
		case <-done:
			return
		default:
		}
		v.tick()
	}
}

func (v *ViewLoop) eyes() []*eye {
	if v.stereoMode {
		return []*eye{&v.stereo[0], &v.stereo[1]}
	}
	return []*eye{&v.mono}
}

func (v *ViewLoop) tick() {
	profiling.ResetFrame()
	visibility.Advance()

	now := time.Now()
	dt := now.Sub(v.lastTime).Seconds()
	v.lastTime = now

	func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()
	v.handleInputActions()

	if !v.paused {
		v.head.Update(dt, v.input)
		if v.motion {
			func() {
				defer profiling.Track("scene.Step")()
				if err := v.scene.Step(float32(dt)); err != nil {
					logs.Error(err)
				}
			}()
		}
	}

	width, height := v.window.GetFramebufferSize()
	eyes := v.eyes()
	v.updateCameras(width, height)

	// results from earlier frames come in before the tree is walked again
	for _, e := range eyes {
		v.partition.ReadOcclusionResults(e.cam.Slot)
	}
	v.partition.Rebound()

	v.renderer.Clear()
	for _, e := range eyes {
		if !v.frozen {
			v.partition.Cull(e.cam, &e.set)
		}
		x, w := e.x(width), e.w(width)
		v.renderer.Render(e.cam, &e.set, x, 0, w, height, dt)

		if !v.frozen && config.GetOcclusionEnabled() {
			func() {
				defer profiling.Track("graphics.Occlusion")()
				v.backend.Begin(e.cam.View, e.cam.Proj)
				v.partition.IssueOcclusionQueries(e.cam, &e.set)
				v.backend.End()
			}()
		}
	}

	func() { defer profiling.Track("glfw.SwapBuffers")(); v.window.SwapBuffers() }()
	v.input.PostUpdate()

	v.updateProfiling(now)
	v.fpsLimiter.Wait()
}

func (v *ViewLoop) updateCameras(width, height int) {
	head := v.head.ViewMatrix()
	if !v.stereoMode {
		v.mono.cam.Update(v.renderer.Lens().ProjectionMatrixFor(width, height), head)
		return
	}
	proj := v.renderer.Lens().ProjectionMatrixFor(width/2, height)
	v.stereo[0].cam.Update(proj, camera.EyeView(head, -v.ipd/2))
	v.stereo[1].cam.Update(proj, camera.EyeView(head, v.ipd/2))
}

func (v *ViewLoop) handleInputActions() {
	im := v.input

	if im.JustPressed(input.ActionPause) {
		v.paused = !v.paused
		if v.paused {
			v.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		} else {
			v.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			v.head.ResetMouse()
		}
	}
	if im.JustPressed(input.ActionToggleStereo) {
		v.stereoMode = !v.stereoMode
		logs.WithTag("stereo", v.stereoMode).Info("view mode changed")
	}
	if im.JustPressed(input.ActionToggleOcclusion) {
		enabled := !config.GetOcclusionEnabled()
		config.SetOcclusionEnabled(enabled)
		logs.WithTag("occlusion", enabled).Info("occlusion culling toggled")
	}
	if im.JustPressed(input.ActionToggleGroups) {
		v.boxes.ShowGroups = !v.boxes.ShowGroups
	}
	if im.JustPressed(input.ActionToggleMotion) {
		v.motion = !v.motion
	}
	if im.JustPressed(input.ActionFreezeCull) {
		v.frozen = !v.frozen
		logs.WithTag("frozen", v.frozen).Info("culling freeze toggled")
	}
	if im.JustPressed(input.ActionDumpStats) {
		v.logStats()
	}
}

func (v *ViewLoop) logStats() {
	st := v.partition.Stats()
	pool := v.partition.QueryPool()
	l := logs.WithTag("entries", st.Entries).
		WithTag("groups", st.Groups).
		WithTag("nodes", st.Nodes).
		WithTag("object_scans", st.ObjectScans).
		WithTag("query_pool_size", pool.Size()).
		WithTag("queries_pending", pool.PendingCount()).
		WithTag("queries_issued", v.backend.Issued())
	for _, e := range v.eyes() {
		l = l.WithTag(e.cam.Slot.String()+"_visible", e.set.Stats.EntriesVisible).
			WithTag(e.cam.Slot.String()+"_occluded", e.set.Stats.OcclusionCulled)
	}
	l.Info("partition stats")

	if err := v.partition.CheckInvariants(); err != nil {
		logs.Error(err)
	}
}

func (v *ViewLoop) updateProfiling(frameStart time.Time) {
	v.frames++
	if time.Since(v.lastFPSCheckTime) >= time.Second {
		logs.WithTag("fps", v.frames).Debug("frame rate")
		v.frames = 0
		v.lastFPSCheckTime = time.Now()
	}

	target := v.fpsLimiter.Target()
	if target == 0 {
		target = time.Second / 60
	}
	if d := time.Since(frameStart); d > target {
		logs.WithTag("frame_ms", float64(d.Microseconds())/1000).
			WithTag("target_ms", float64(target.Microseconds())/1000).
			WithTag("top", profiling.TopN(5)).
			Warn("frame processing too slow")
	}
}
