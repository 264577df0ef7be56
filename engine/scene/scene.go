package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
)

// Scene is an ordered collection of drawables and lights rendered together by a deferred.Context.
// Drawables are emitted in insertion order and lights are accumulated in insertion order.
// Scenes can be hot-swapped via the Active flag to switch between different views.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Add appends a drawable to the scene.
	//
	// Parameters:
	//   - d: the drawable to add
	//
	// Returns:
	//   - uint64: the assigned ID, never 0
	Add(d deferred.Drawable) uint64

	// Get retrieves a drawable by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the drawable's ID
	//
	// Returns:
	//   - deferred.Drawable: the drawable or nil
	Get(id uint64) deferred.Drawable

	// Remove removes a drawable by ID, keeping the order of the rest.
	//
	// Parameters:
	//   - id: the drawable's ID
	Remove(id uint64)

	// Count returns the number of drawables in the scene.
	Count() int

	// Drawables returns the drawables in draw order. The slice is a copy.
	Drawables() []deferred.Drawable

	// AddLight appends a light.
	//
	// Parameters:
	//   - l: the light to add
	//
	// Returns:
	//   - int: the light's index
	AddLight(l light.Light) int

	// SetLight replaces the light at index i. Out-of-range indices are ignored.
	//
	// Parameters:
	//   - i: the light index
	//   - l: the replacement light
	SetLight(i int, l light.Light)

	// RemoveLight removes the light at index i, shifting later lights down.
	//
	// Parameters:
	//   - i: the light index
	RemoveLight(i int)

	// Lights returns the lights in accumulation order. The slice is a copy.
	Lights() []light.Light

	// Clear removes all drawables and lights.
	Clear()

	// Render renders one frame of the scene through ctx.
	//
	// Parameters:
	//   - ctx: the context to render with
	//
	// Returns:
	//   - error: the frame error from ctx.RenderFrame
	Render(ctx *deferred.Context) error
}

type entry struct {
	id       uint64
	drawable deferred.Drawable
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	entries []entry
	nextID  uint64

	lights []light.Light
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new, inactive, empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.RWMutex{},
		name:   name,
		nextID: 1,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Add(d deferred.Drawable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(d)
}

// addLocked appends d. Caller must hold s.mu write lock.
func (s *scene) addLocked(d deferred.Drawable) uint64 {
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, entry{id: id, drawable: d})
	return id
}

func (s *scene) Get(id uint64) deferred.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.id == id {
			return e.drawable
		}
	}
	return nil
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(s.entries, func(e entry) bool { return e.id == id })
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *scene) Drawables() []deferred.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]deferred.Drawable, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.drawable
	}
	return out
}

func (s *scene) AddLight(l light.Light) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
	return len(s.lights) - 1
}

func (s *scene) SetLight(i int, l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lights) {
		return
	}
	s.lights[i] = l
}

func (s *scene) RemoveLight(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lights) {
		return
	}
	s.lights = slices.Delete(s.lights, i, i+1)
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.lights = nil
}

func (s *scene) Render(ctx *deferred.Context) error {
	return ctx.RenderFrame(s.Lights(), s.Drawables())
}
