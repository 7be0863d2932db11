// Package domain defines Task, its status vocabulary and the rules a task
// must satisfy on its own: title bounds, the done-requires-due-date rule and
// UTC timestamps. It has no knowledge of storage or transport.
package domain
