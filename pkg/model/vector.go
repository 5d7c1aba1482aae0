package model

// ShapeVector is a fixed-length normalized price shape with entries in [0, 1]
type ShapeVector []float64

// VectorDim constants for common shape lengths
const (
	VectorDim32 = 32
	VectorDim64 = 64
)

// NewShapeVector creates a new ShapeVector with the specified dimension
func NewShapeVector(dim int) ShapeVector {
	return make(ShapeVector, dim)
}

// Dim returns the dimension of the shape vector
func (sv ShapeVector) Dim() int {
	return len(sv)
}

// ToFloat32 converts the shape vector for vector-index storage
func (sv ShapeVector) ToFloat32() []float32 {
	result := make([]float32, len(sv))
	for i, v := range sv {
		result[i] = float32(v)
	}
	return result
}

// CorpusEntry pairs a closed segment with its normalized shape
type CorpusEntry struct {
	Segment *Segment
	Vector  ShapeVector
}
