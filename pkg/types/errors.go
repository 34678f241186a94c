package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all layers.
var (
	// ErrInvalidInput means the selected file is not an image.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInference means the remote roast call failed for any reason.
	ErrInference = errors.New("inference failed")
	// ErrCompositing means the share card could not be produced.
	ErrCompositing = errors.New("compositing failed")

	ErrImageDecode   = fmt.Errorf("%w: cannot decode source image", ErrCompositing)
	ErrRenderContext = fmt.Errorf("%w: drawing surface unavailable", ErrCompositing)
)
