// Package instrument is a small in-process instrumentation system.
//
// Sources are named emitters with a stable identity. A Hub keeps track of
// every source the process creates, replays them to listeners that join
// late, and routes events written by a source to the listeners that enabled
// it. Counter sources publish periodic EventCounters reports once a
// listener enables them with a reporting interval:
//
//	hub := instrument.NewHub()
//	rt, err := instrument.NewRuntimeSource(hub)
//	...
//	hub.AddListener(l)
//	hub.EnableEvents(l, rt.ID(), map[string]string{
//	    instrument.IntervalOption: "1",
//	})
package instrument
