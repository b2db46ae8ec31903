package telemetry

// #region history
// HistoryCap is the maximum number of samples retained per mission. Older
// samples slide out of the window; they are never an error.
const HistoryCap = 100

// History is a bounded, arrival-ordered sample window for a single mission.
// It is not safe for concurrent use; the engine serializes access.
type History struct {
	samples []Sample
}

// Append adds a sample at the end of the window, evicting the oldest entry
// once the window exceeds HistoryCap.
func (h *History) Append(s Sample) {
	h.samples = append(h.samples, s)
	if len(h.samples) > HistoryCap {
		h.samples = h.samples[len(h.samples)-HistoryCap:]
	}
}

// Len reports the number of retained samples.
func (h *History) Len() int {
	return len(h.samples)
}

// Samples returns a copy of the window in arrival order.
func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Last returns the most recent sample. ok is false for an empty window.
func (h *History) Last() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// #endregion history
