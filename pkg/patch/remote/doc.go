// Package remote carries runtime change notifications over Redis pub/sub.
//
// A [Publisher] forwards every event of a [patch.Notifier] to a channel; a
// [Listener] receives them in another process and hands them to a callback,
// typically [canvas.TaskQueue.PostEvent]. Events are notifications only: a
// receiver treats them as a request to resynchronize, never as state.
//
// Messages are JSON:
//
//	{"source":"6f0c…","kind":"geometry","handle":"1b9d…"}
//	{"source":"6f0c…","kind":"message","handle":"1b9d…","symbol":"pos","args":[10,20]}
//
// Each publisher stamps a random source id so a process can ignore its own
// echoes.
package remote
