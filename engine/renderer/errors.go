package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

var (
	// ErrShaderCompile wraps every shader parse, validation or pipeline creation failure.
	ErrShaderCompile = shader.ErrCompile

	// ErrProgramNotFound is returned when a draw names a program that was never registered.
	ErrProgramNotFound = errors.New("renderer: program not found")

	// ErrTargetAllocation is returned when a render target cannot be created.
	ErrTargetAllocation = errors.New("renderer: render target allocation failed")

	// ErrFrameInProgress is returned by BeginFrame while another frame is open.
	ErrFrameInProgress = errors.New("renderer: frame already in progress")

	// ErrNoFrame is returned by frame-scoped calls made outside BeginFrame/Present.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrStaleTarget is returned when a render target from an earlier frame is used.
	ErrStaleTarget = errors.New("renderer: render target does not belong to the current frame")

	// ErrTargetMismatch is returned when a program is drawn into a target it was not built for,
	// or a target is sampled by the draw that writes it.
	ErrTargetMismatch = errors.New("renderer: program and target do not match")

	// ErrMissingTexture is returned when a draw does not supply a texture the program samples.
	ErrMissingTexture = errors.New("renderer: texture binding not supplied")

	// ErrReadbackUnsupported is returned by backends that cannot copy pixels back to the host.
	ErrReadbackUnsupported = errors.New("renderer: readback not supported by backend")
)
