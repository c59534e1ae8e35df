// Package eventsrv exposes the engine over socket.io.
//
// A client starts a run with `run:start`, whose payload is an execution
// request, and receives `run:accepted` followed by the run's events on the
// same socket. Other clients follow a run by emitting `run:watch`, which
// joins the socket to the run's room. `run:cancel` requests cancellation.
//
// Every server event carries a JSON object:
//
//	run:accepted    {runId}
//	run:started     {runId, status, time}
//	node:completed  {runId, nodeId, time, report}
//	run:finished    {runId, status, error, time, result}
//	run:error       {runId, error}
//
// The package also holds the client used by `gridflow watch`.
package eventsrv
