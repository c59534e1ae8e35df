// Package events is the in-process publish/subscribe bus for run events.
//
// The engine publishes RunStarted when a run leaves Pending, one
// NodeCompleted per published node result and RunFinished once the run is
// terminal. Subscribers receive a buffered channel filtered by run id and
// event type.
//
// Publishing never blocks. When a subscriber's buffer is full the event is
// dropped for that subscriber only and reported to the bus error handler, so
// a slow consumer cannot stall the scheduler.
package events
