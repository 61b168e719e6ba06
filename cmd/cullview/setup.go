package main

import (
	renderer "cullengine/internal/graphics/renderer"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func setupWindow(width, height int) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(width, height, "cullview", nil, nil)
	if err != nil {
		return nil, errors.New("creating window failed").
			WithTag("width", width).
			WithTag("height", height).
			Wrap(err)
	}
	window.MakeContextCurrent()

	glfw.SwapInterval(0)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	return window, nil
}

func setupCallbacks(window *glfw.Window, r *renderer.Renderer, loop *ViewLoop) {
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !loop.paused {
			loop.head.HandleMouseMovement(xpos, ypos)
		}
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.UpdateViewport(width, height)
	})
}
