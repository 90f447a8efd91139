package testutil

import "time"

// AsyncTimeout bounds how long a test waits for a completion that crosses
// goroutines (transport hooks, HTTP callbacks, loop jobs).
//
// Loop round-trips are sub-millisecond locally; CI under -race has been seen
// an order of magnitude slower.
const AsyncTimeout = 5 * time.Second

// PollInterval is the spacing between checks in Poll and WaitForState.
const PollInterval = 5 * time.Millisecond

// QuietPeriod is how long a test waits to assert that something did NOT
// happen, e.g. no callback after the owning host was destroyed.
const QuietPeriod = 50 * time.Millisecond
