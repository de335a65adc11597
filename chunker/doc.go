// Package chunker splits document text into bounded-size chunks.
//
// Boilerplate (markdown images, markup tags, bare URLs) is stripped first. The
// remaining text is cut at the most meaningful boundary found in each window:
// a fenced code delimiter, then a paragraph break, then a sentence break. A
// boundary only counts once it lies past 30% of the window, so splitting never
// degenerates into tiny fragments.
package chunker
