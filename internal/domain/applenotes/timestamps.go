package applenotes

import "time"

// Apple Core Data timestamps count seconds from 2001-01-01 UTC.
const appleEpochOffset = 978307200

func FromAppleTime(seconds float64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	unix := seconds + appleEpochOffset
	sec := int64(unix)
	nsec := int64((unix - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func ToAppleTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano())/1e9 - appleEpochOffset
}
