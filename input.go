package main

// FrameInput is the resolved input consumed by one physics frame
type FrameInput struct {
	Held     bool // thrust held this frame
	Interact bool // a discrete interaction fires this frame
	AutoJump bool // the interaction was synthesized by hold-to-repeat
}

// InputTracker turns raw press/release edges into per-frame interactions.
// A press fires exactly one interaction. Holding fires one extra synthesized
// interaction per grounding, which is what makes hold-to-bunny-hop work in
// the jumping modes; modes that act in the air ignore the synthesized kind
// unless grounded.
type InputTracker struct {
	held         bool
	pendingPress bool
	autoFired    bool
	wasGrounded  bool
}

// Press records a press edge. Repeat press events while already held (key
// auto-repeat from the OS) are ignored.
func (t *InputTracker) Press() {
	if !t.held {
		t.held = true
		t.pendingPress = true
	}
}

// Release records a release edge
func (t *InputTracker) Release() {
	t.held = false
}

// Resolve consumes the pending edge state for one frame. grounded is the
// player's support state entering the frame; a fresh grounding re-arms the
// one-shot auto-repeat.
func (t *InputTracker) Resolve(grounded bool) FrameInput {
	if grounded && !t.wasGrounded {
		t.autoFired = false
	}
	t.wasGrounded = grounded

	in := FrameInput{Held: t.held}
	if t.pendingPress {
		t.pendingPress = false
		in.Interact = true
	} else if t.held && grounded && !t.autoFired {
		t.autoFired = true
		in.Interact = true
		in.AutoJump = true
	}
	return in
}

// Reset clears all edge state, used on session restart
func (t *InputTracker) Reset() {
	t.held = false
	t.pendingPress = false
	t.autoFired = false
	t.wasGrounded = false
}
