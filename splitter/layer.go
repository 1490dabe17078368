package splitter

// LayerListener drives the activation gate from keymap layer-state changes,
// so the splitter engages only while a designated layer is held. The layer
// system itself lives upstream; only the state bitmask crosses this
// boundary.
type LayerListener struct {
	splitter *Splitter
	layer    uint8
}

// NewLayerListener watches the given layer bit on s.
func NewLayerListener(s *Splitter, layer uint8) *LayerListener {
	return &LayerListener{splitter: s, layer: layer}
}

// LayerStateChanged feeds a new layer-state bitmask. The gate follows the
// watched bit; SetActive already makes repeated states a no-op.
func (l *LayerListener) LayerStateChanged(state uint32) {
	l.splitter.SetActive(state&(1<<l.layer) != 0)
}
