// ABOUTME: Build identification constants
// ABOUTME: Reported in remote hello messages and the mDNS TXT record
package version

const (
	Version      = "0.3.0"
	Product      = "Oboe Karaoke"
	Manufacturer = "dipak140"
)
