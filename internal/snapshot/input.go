package snapshot

import (
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// InputSource is the rendering layer's view of the controls.
type InputSource interface {
	Keys() protocol.Keys
	Pointer() protocol.Pointer
}

// CaptureInput samples controls into the only simulation message a guest
// ever sends about its own player.
func CaptureInput(src InputSource) protocol.Input {
	p := src.Pointer()
	p.X, p.Y = geom.Quantize(p.X), geom.Quantize(p.Y)
	return protocol.Input{Keys: src.Keys(), Pointer: p}
}

// RemoteInput holds the last input received from each guest slot along with
// edge detection for one-shot keys.
type RemoteInput struct {
	latest [protocol.MaxSlots]protocol.Input
	prevE  [protocol.MaxSlots]bool
}

func (r *RemoteInput) Set(slot int, in protocol.Input) {
	if slot >= 0 && slot < protocol.MaxSlots {
		r.latest[slot] = in
	}
}

func (r *RemoteInput) Get(slot int) protocol.Input {
	if slot < 0 || slot >= protocol.MaxSlots {
		return protocol.Input{}
	}
	return r.latest[slot]
}

// PressedE reports a fresh press of E since the last call for slot.
func (r *RemoteInput) PressedE(slot int) bool {
	if slot < 0 || slot >= protocol.MaxSlots {
		return false
	}
	down := r.latest[slot].Keys.E
	pressed := down && !r.prevE[slot]
	r.prevE[slot] = down
	return pressed
}

// Clear forgets a departed guest's controls.
func (r *RemoteInput) Clear(slot int) {
	if slot >= 0 && slot < protocol.MaxSlots {
		r.latest[slot] = protocol.Input{}
		r.prevE[slot] = false
	}
}
