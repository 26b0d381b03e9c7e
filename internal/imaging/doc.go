// Package imaging provides the raster views consumed by marker identification.
//
// The package converts decoded images into floating-point views and offers the
// sampling primitives the identification pipeline relies on: bounds-checked
// bicubic point sampling on a grayscale view, Sobel gradient fields, a cache of
// decoded images, and a debug overlay that renders points reported during
// identification. Rendered overlays can be cropped to the neighbourhood of a
// single marker.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Sub-pixel coordinates address pixel centers at integer values, so a
//     view of width W is sampleable over the closed range [0, W-1]
//
// # Intensity Range
//
// Gray views hold luminance in [0, 1]. Bicubic interpolation may overshoot
// this range slightly near sharp edges; values are not clamped.
//
// # Thread Safety
//
// Gray and Field values are never mutated after construction and may be shared
// by any number of goroutines. ImageCache and Overlay are safe for concurrent
// use.
//
// # Error Handling
//
// Sampling never returns errors: Gray.Bicubic reports out-of-bounds positions
// through its boolean result and Field.At reads zero outside the field.
// Loading and encoding functions return errors for I/O and format failures.
package imaging
