// ABOUTME: Latency estimation package
// ABOUTME: Relates recorder and player frame clocks to find recording delay
// Package latency estimates the delay between recorded audio and the music
// track it was sung against.
//
// Each stream reports a frame position and the timestamp at which that
// position was observed. Estimate turns both into milliseconds:
//
//	(recTs - playTs)/1e6 - recFrames/rate*1000 + playFrames/rate*1000
//
// Tracker smooths successive estimates for display and for choosing a
// compensation offset when the recording is later aligned with the track.
package latency
