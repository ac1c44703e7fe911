// Package rating provides a Normaliser for aggregate user ratings built from
// the reviews summary and the two average-rating responses.
package rating
