package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action represents a logical viewer action, not a physical key
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionFast
	ActionPause
	ActionToggleStereo
	ActionToggleOcclusion
	ActionToggleGroups
	ActionToggleMotion
	ActionFreezeCull
	ActionDumpStats
	ActionCount // Sentinel value for array sizing
)

// InputManager maps physical keys and mouse buttons to actions and keeps
// per-frame edge state for them.
type InputManager struct {
	mu sync.RWMutex

	keyToActions         map[glfw.Key][]Action
	mouseButtonToActions map[glfw.MouseButton][]Action

	currentState [ActionCount]bool
	prevState    [ActionCount]bool

	// reset each frame by PostUpdate
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool
}

// NewInputManager creates an InputManager with the default viewer bindings.
func NewInputManager() *InputManager {
	im := &InputManager{
		keyToActions:         make(map[glfw.Key][]Action),
		mouseButtonToActions: make(map[glfw.MouseButton][]Action),
	}

	im.BindKey(glfw.KeyW, ActionMoveForward)
	im.BindKey(glfw.KeyUp, ActionMoveForward)
	im.BindKey(glfw.KeyS, ActionMoveBackward)
	im.BindKey(glfw.KeyDown, ActionMoveBackward)
	im.BindKey(glfw.KeyA, ActionMoveLeft)
	im.BindKey(glfw.KeyLeft, ActionMoveLeft)
	im.BindKey(glfw.KeyD, ActionMoveRight)
	im.BindKey(glfw.KeyRight, ActionMoveRight)
	im.BindKey(glfw.KeySpace, ActionMoveUp)
	im.BindKey(glfw.KeyLeftControl, ActionMoveDown)
	im.BindKey(glfw.KeyLeftShift, ActionFast)
	im.BindKey(glfw.KeyEscape, ActionPause)
	im.BindKey(glfw.KeyT, ActionToggleStereo)
	im.BindKey(glfw.KeyO, ActionToggleOcclusion)
	im.BindKey(glfw.KeyG, ActionToggleGroups)
	im.BindKey(glfw.KeyM, ActionToggleMotion)
	im.BindKey(glfw.KeyF, ActionFreezeCull)
	im.BindKey(glfw.KeyP, ActionDumpStats)

	im.BindMouseButton(glfw.MouseButtonRight, ActionFast)

	return im
}

// BindKey binds a physical key to an action. A key may drive several
// actions and several keys may drive one action.
func (im *InputManager) BindKey(key glfw.Key, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if action < 0 || action >= ActionCount {
		return
	}

	im.keyToActions[key] = append(im.keyToActions[key], action)
}

// UnbindKey removes all action bindings for a key
func (im *InputManager) UnbindKey(key glfw.Key) {
	im.mu.Lock()
	defer im.mu.Unlock()

	delete(im.keyToActions, key)
}

// BindMouseButton binds a mouse button to a logical action
func (im *InputManager) BindMouseButton(button glfw.MouseButton, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if action < 0 || action >= ActionCount {
		return
	}

	im.mouseButtonToActions[button] = append(im.mouseButtonToActions[button], action)
}

// UnbindMouseButton removes all action bindings for a mouse button
func (im *InputManager) UnbindMouseButton(button glfw.MouseButton) {
	im.mu.Lock()
	defer im.mu.Unlock()

	delete(im.mouseButtonToActions, button)
}

// HandleKeyEvent records a key event. Repeats count as held.
func (im *InputManager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.keyToActions[key], action == glfw.Press || action == glfw.Repeat)
}

// HandleMouseButtonEvent records a mouse button event.
func (im *InputManager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.mouseButtonToActions[button], action == glfw.Press)
}

// apply sets the held state of actions and latches edges. Callers hold mu.
func (im *InputManager) apply(actions []Action, down bool) {
	for _, a := range actions {
		switch {
		case down && !im.currentState[a]:
			im.justPressed[a] = true
		case !down && im.currentState[a]:
			im.justReleased[a] = true
		}
		im.currentState[a] = down
	}
}

// Attach installs key and mouse button callbacks on window.
func (im *InputManager) Attach(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleKeyEvent(key, action)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleMouseButtonEvent(button, action)
	})
}

// PostUpdate clears edge flags. Call it once at the end of every frame.
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()

	for i := range ActionCount {
		im.justPressed[i] = false
		im.justReleased[i] = false
		im.prevState[i] = im.currentState[i]
	}
}

// IsActive returns true if the action is currently being held down
func (im *InputManager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.currentState[action]
}

// JustPressed returns true only if the action was pressed in the current frame
func (im *InputManager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.justPressed[action]
}

// JustReleased returns true only if the action was released in the current frame
func (im *InputManager) JustReleased(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.justReleased[action]
}
