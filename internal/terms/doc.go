// Package terms applies compiled operator terms to basis states.
//
// Fill walks the input basis, applies every term to every state and hands
// each matrix element to a Sink. The same traversal builds dense matrices,
// sparse matrices, non-zero counts and matrix-vector products.
package terms
