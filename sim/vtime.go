package sim

import "fmt"

// VTime is a point in virtual time, counted in whole base units. The base
// unit is one virtual second. VTime is also used for durations.
type VTime int64

// Seconds returns a duration of n virtual seconds.
func Seconds(n int64) VTime {
	return VTime(n)
}

// Hours returns a duration of n virtual hours.
func Hours(n int64) VTime {
	return VTime(n * 3600)
}

// Days returns a duration of n virtual days.
func Days(n int64) VTime {
	return VTime(n * 86400)
}

func (t VTime) String() string {
	return fmt.Sprintf("%d", int64(t))
}
