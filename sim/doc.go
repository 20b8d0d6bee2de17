// Package sim provides the discrete-event simulation kernel: virtual time,
// events, the event queue, the serial engine, hooks, and the injected
// sources of identity and randomness.
package sim
