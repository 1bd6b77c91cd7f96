// ABOUTME: Track loader package
// ABOUTME: Adapts external codec libraries to in-memory 16-bit PCM tracks
// Package decode loads backing tracks from disk.
//
// Supported: WAV (go-audio/wav), MP3 (go-mp3), FLAC (mewkiz/flac),
// Ogg Vorbis (jfreymuth/oggvorbis) and headerless PCM. Every loader
// returns interleaved signed 16-bit little-endian PCM with its format;
// channel and rate conversion happen later, in the session.
//
// Example:
//
//	track, err := decode.Load("songs/backing.flac")
//	h, err := sess.Load(track)
package decode
