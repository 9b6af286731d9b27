// Package pcm describes the audio formats the device handles.
//
// Everything on the device is mono at 8000 Hz; the formats differ only in
// sample encoding: 16-bit linear PCM, G.711 µ-law, or G.711 A-law. Format
// carries the sample-rate/size arithmetic the capture and playback pipelines
// need, plus the wire encoding tags ("pcm16", "mulaw", "alaw").
//
// Example usage:
//
//	format := pcm.MulawMono8K
//
//	// How long does a 1024-byte DMA chunk play for?
//	d := format.Duration(1024) // 128ms
//
//	// How many samples is that?
//	n := format.Samples(1024) // 1024
package pcm
