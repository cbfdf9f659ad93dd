// Package realtime fans incubation events out to live observers.
//
// Each incubation has one topic, named by Topic. Observers subscribe with a
// Subscriber whose Send never blocks; the Broker delivers every event
// published to a topic, in publish order, to the subscribers present at
// that moment. There is no replay and no queueing for absent observers.
//
// Mirrors receive every published event regardless of subscribers. The
// MQTT mirror republishes events under smartegg/incubation/{id}/event/{name}
// so devices and bridges can follow an incubation without a websocket.
package realtime
