package stream

// A Layer draws part of a scene onto a frame. Layers are drawn in order,
// later layers on top.
type Layer interface {
	Draw(f *Frame)
}

// LayerFunc adapts a function to the Layer interface.
type LayerFunc func(f *Frame)

// Draw calls fn.
func (fn LayerFunc) Draw(f *Frame) {
	fn(f)
}

// Layers is a stack of layers drawn bottom to top.
type Layers []Layer

// Draw draws every layer in order.
func (l Layers) Draw(f *Frame) {
	for _, layer := range l {
		layer.Draw(f)
	}
}
