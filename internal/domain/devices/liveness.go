package devices

import "time"

// DefaultTimeout: sin heartbeat por 5 minutos el dispositivo se considera offline.
const DefaultTimeout = 300 * time.Second

// DeriveOnline se calcula al leer; no hay barrido en background.
// El borde (now-lastSeen == timeout) cuenta como offline.
func DeriveOnline(lastSeen, now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return now.Sub(lastSeen) < timeout
}
