// Package matlab converts values between Go and the MATLAB language.
//
// Arguments travel to the engine as MATLAB source literals produced by
// [Encode]; results travel back as JSON documents that [DecodeArrays] turns
// into [Array] values. The package does not talk to any engine itself.
//
// # Supported values
//
//   - nil: NaN
//   - bool, signed/unsigned integers, float32/float64: scalars
//   - string: char vectors
//   - time.Time: date strings (2006-01-02, or with a clock part when set)
//   - []float64, []*float64: row vectors (nil entries become NaN)
//   - [][]float64: matrices
//   - []string: cell arrays of char vectors
//   - []any: row vectors or cell arrays, depending on the element kinds
//   - map[string]any, *Struct: scalar structs
package matlab
