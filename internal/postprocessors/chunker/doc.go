// Package chunker provides text splitters that turn page segments into chunks.
//
// Two strategies are available:
//
//   - Recursive: splits at paragraph, line, sentence, word and finally
//     character boundaries, merging small pieces back up to the chunk size.
//   - Fixed: slides a fixed-size character window with overlap.
//
// Lengths are measured in characters (runes), not bytes.
package chunker
