// Package rectify samples the ring pattern of a marker along radial lines.
//
// A marker ring seen under perspective is an ellipse. The package builds a
// homography that maps a canonical 1-D axis (t, 0) onto the image so that
// t = 0 lands on the projected marker center and t = 1 on a chosen point of
// the outer ellipse. Sampling t over [0, 1] then yields a cut through the
// rings whose transitions sit at fixed fractions regardless of viewpoint.
//
// # Sweeping
//
// Sweep rotates the homography around the ellipse by re-anchoring it on each
// successive boundary point with Adjust, reusing the previous matrix instead
// of rebuilding it from the conic. The sweep periodically re-anchors on the
// reference homography to bound the drift accumulated by repeated
// composition.
//
// # Out-of-bounds Samples
//
// The two sampling functions treat samples falling outside the image
// differently:
//   - Rectify fills them with the mean of the in-bounds samples, a neutral
//     value that does not create false ring transitions.
//   - InterpolateStraight fills them with 0 (black) and reports how many
//     samples were valid, so callers can discard poorly covered cuts.
//
// # Numerical Guards
//
// FromEllipseCenter factors matrices derived from the ellipse conic. A
// singular conic or a center lying on the conic has no usable factorization
// and returns ErrDegenerateConic. Sweep rejects centers far outside the
// frame with ErrCenterOutOfFrame before attempting any factorization.
package rectify
