package neighborhood

import "time"

func minutesDuration(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
