// Package session holds the roast view-state machine.
//
// State changes only through Transition, a pure function of the current
// State and an Event. Every inference request is tagged with the sequence
// number that was current when it started; results carrying an older
// number are dropped, so a reset or a new upload always wins over a late
// response.
package session

import (
	"errors"
	"fmt"

	"github.com/menta2k/roast-cam/pkg/types"
)

// Status is the view currently shown
type Status int

const (
	Idle Status = iota
	Analyzing
	Result
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Analyzing:
		return "analyzing"
	case Result:
		return "result"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// User-facing messages.
const (
	MsgInvalidImage    = "Please upload a valid image file."
	MsgInferenceFailed = "Failed to generate roast. The AI might be overwhelmed by your style."
	MsgExportFailed    = "Oops, couldn't create the image. Try again!"
)

// State is the complete view state of one session
type State struct {
	Status Status
	Image  *types.ImageHandle
	Roasts *types.Roasts
	Style  types.Style
	ErrMsg string
	// Seq identifies the most recent inference request. Results tagged
	// with any other value are stale.
	Seq uint64
}

// Event is an input to Transition
type Event interface {
	event()
}

// FileSelected is emitted when the user picks a file
type FileSelected struct {
	Handle *types.ImageHandle
}

// InferenceSucceeded carries the roasts returned for request Seq
type InferenceSucceeded struct {
	Seq    uint64
	Roasts types.Roasts
}

// InferenceFailed reports that request Seq failed
type InferenceFailed struct {
	Seq uint64
	Err error
}

// StyleSelected switches the displayed roast variant
type StyleSelected struct {
	Style types.Style
}

// Reset returns to the idle view
type Reset struct{}

func (FileSelected) event()       {}
func (InferenceSucceeded) event() {}
func (InferenceFailed) event()    {}
func (StyleSelected) event()      {}
func (Reset) event()              {}

// Transition computes the state that follows s after ev
func Transition(s State, ev Event) State {
	switch e := ev.(type) {
	case FileSelected:
		if !e.Handle.IsImage() {
			s.ErrMsg = MsgInvalidImage
			return s
		}
		return State{
			Status: Analyzing,
			Image:  e.Handle,
			Style:  types.Savage,
			Seq:    s.Seq + 1,
		}

	case InferenceSucceeded:
		if s.Status != Analyzing || e.Seq != s.Seq {
			return s
		}
		roasts := e.Roasts
		s.Status = Result
		s.Roasts = &roasts
		s.ErrMsg = ""
		return s

	case InferenceFailed:
		if s.Status != Analyzing || e.Seq != s.Seq {
			return s
		}
		return State{
			Status: Error,
			ErrMsg: MsgInferenceFailed,
			Seq:    s.Seq,
		}

	case StyleSelected:
		if s.Status != Result || !e.Style.Valid() {
			return s
		}
		s.Style = e.Style
		return s

	case Reset:
		return State{Status: Idle, Style: types.Savage, Seq: s.Seq + 1}
	}
	return s
}

// Stale reports whether a result for request seq would be ignored in s
func (s State) Stale(seq uint64) bool {
	return s.Status != Analyzing || seq != s.Seq
}

// Caption returns the roast text for the selected style, if any
func (s State) Caption() (string, bool) {
	if s.Roasts == nil {
		return "", false
	}
	return s.Roasts.Text(s.Style), true
}

// Validate checks the invariants that tie Status to the other fields
func Validate(s State) error {
	var errs []error
	switch s.Status {
	case Idle, Analyzing:
		if s.Roasts != nil {
			errs = append(errs, fmt.Errorf("%s state must not carry roasts", s.Status))
		}
		if s.Status == Analyzing && s.Image == nil {
			errs = append(errs, errors.New("analyzing state requires an image"))
		}
	case Result:
		if s.Image == nil || s.Roasts == nil {
			errs = append(errs, errors.New("result state requires an image and roasts"))
		}
	case Error:
		if s.ErrMsg == "" {
			errs = append(errs, errors.New("error state requires a message"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown status %d", int(s.Status)))
	}
	if !s.Style.Valid() {
		errs = append(errs, fmt.Errorf("invalid style %d", int(s.Style)))
	}
	return errors.Join(errs...)
}

// Session owns a single State. It is not safe for concurrent use; the
// event loop that owns it serialises all calls.
type Session struct {
	state State
}

// New returns a session in the idle state
func New() *Session {
	return &Session{}
}

// State returns a copy of the current state
func (s *Session) State() State {
	return s.state
}

// Dispatch applies ev and returns the resulting state
func (s *Session) Dispatch(ev Event) State {
	s.state = Transition(s.state, ev)
	return s.state
}

// Begin selects h and returns the sequence number the inference request
// must be tagged with. ok is false when h was rejected as not an image.
func (s *Session) Begin(h *types.ImageHandle) (seq uint64, ok bool) {
	st := s.Dispatch(FileSelected{Handle: h})
	if st.Status != Analyzing || st.Image != h {
		return 0, false
	}
	return st.Seq, true
}
