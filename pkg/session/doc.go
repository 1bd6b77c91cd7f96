// ABOUTME: Playback session package
// ABOUTME: Owns the music ring, the mixer and the transport state machine
// Package session controls backing-track playback for a karaoke duplex stream.
//
// A Session prepares loaded tracks to the device format, keeps the music
// ring topped up from a producer goroutine, and moves through
// Idle, Buffering, Playing, Paused and Ended. The mixer gate is opened only
// once the ring holds the prebuffer, so the first device cycle after Play
// already carries music.
package session
