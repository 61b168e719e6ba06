package config

import "sync"

// CullSettings holds culling and occlusion configuration
type CullSettings struct {
	mu                    sync.RWMutex
	recentlyVisibleFrames int
	occlusionEnabled      bool
	nodeCapacity          int
	minNodeHalfSize       float32
	occlusionBoxPadding   float32
	fatalOnInvariant      bool
}

const (
	DefaultRecentlyVisibleFrames = 2
	DefaultNodeCapacity          = 8
	DefaultMinNodeHalfSize       = 0.5
	DefaultOcclusionBoxPadding   = 0.1
)

var globalCullSettings = newDefaults()

func newDefaults() *CullSettings {
	return &CullSettings{
		recentlyVisibleFrames: DefaultRecentlyVisibleFrames,
		occlusionEnabled:      true,
		nodeCapacity:          DefaultNodeCapacity,
		minNodeHalfSize:       DefaultMinNodeHalfSize,
		occlusionBoxPadding:   DefaultOcclusionBoxPadding,
		fatalOnInvariant:      false,
	}
}

// ResetDefaults restores every setting to its default value
func ResetDefaults() {
	d := newDefaults()
	s := globalCullSettings
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentlyVisibleFrames = d.recentlyVisibleFrames
	s.occlusionEnabled = d.occlusionEnabled
	s.nodeCapacity = d.nodeCapacity
	s.minNodeHalfSize = d.minNodeHalfSize
	s.occlusionBoxPadding = d.occlusionBoxPadding
	s.fatalOnInvariant = d.fatalOnInvariant
}

// GetRecentlyVisibleFrames returns how many frames count as "recently visible"
func GetRecentlyVisibleFrames() uint32 {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return uint32(globalCullSettings.recentlyVisibleFrames)
}

// SetRecentlyVisibleFrames sets the recency window in frames
func SetRecentlyVisibleFrames(frames int) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()

	if frames < 1 {
		frames = 1
	}
	if frames > 64 {
		frames = 64
	}
	globalCullSettings.recentlyVisibleFrames = frames
}

// GetOcclusionEnabled returns whether hardware occlusion culling runs
func GetOcclusionEnabled() bool {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return globalCullSettings.occlusionEnabled
}

func SetOcclusionEnabled(enabled bool) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()
	globalCullSettings.occlusionEnabled = enabled
}

// GetNodeCapacity returns the number of entries a leaf holds before splitting
func GetNodeCapacity() int {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return globalCullSettings.nodeCapacity
}

func SetNodeCapacity(capacity int) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()

	if capacity < 1 {
		capacity = 1
	}
	if capacity > 1024 {
		capacity = 1024
	}
	globalCullSettings.nodeCapacity = capacity
}

// GetMinNodeHalfSize returns the smallest cell half size the tree splits to
func GetMinNodeHalfSize() float32 {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return globalCullSettings.minNodeHalfSize
}

func SetMinNodeHalfSize(half float32) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()

	if half < 0.01 {
		half = 0.01
	}
	globalCullSettings.minNodeHalfSize = half
}

// GetOcclusionBoxPadding returns how far group bounds are inflated for occlusion tests
func GetOcclusionBoxPadding() float32 {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return globalCullSettings.occlusionBoxPadding
}

func SetOcclusionBoxPadding(pad float32) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()

	if pad < 0 {
		pad = 0
	}
	globalCullSettings.occlusionBoxPadding = pad
}

// GetFatalOnInvariantViolation returns whether broken tree invariants stop the process
func GetFatalOnInvariantViolation() bool {
	globalCullSettings.mu.RLock()
	defer globalCullSettings.mu.RUnlock()
	return globalCullSettings.fatalOnInvariant
}

func SetFatalOnInvariantViolation(fatal bool) {
	globalCullSettings.mu.Lock()
	defer globalCullSettings.mu.Unlock()
	globalCullSettings.fatalOnInvariant = fatal
}
