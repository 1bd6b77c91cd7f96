// ABOUTME: PCM ring buffer package
// ABOUTME: Provides overwrite-on-full byte rings for real-time and blocking consumers
// Package ring provides fixed-capacity PCM byte rings.
//
// Buffer is the non-blocking variant shared by the session producer and the
// real-time mixer: writes overwrite the oldest unread bytes when full and
// TryRead gives up instead of waiting on the lock. Blocking adds a
// condition-variable ReadFull for goroutine consumers that need exact frame
// sizes, such as an encoder.
package ring
