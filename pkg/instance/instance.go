package instance

import "os"

// GetID identifies the running process in logs. It prefers the platform
// dyno name, then the container hostname, then "local".
func GetID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
