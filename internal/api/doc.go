// Package api exposes the task lifecycle over HTTP. TaskHandler decodes and
// validates requests, enforces task ownership, and maps service errors to
// status codes and client-safe messages.
package api
