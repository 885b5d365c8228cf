// Package events publishes issue store mutations to NATS.
//
// Every successful create, update and delete becomes one JSON Event on the
// subject
//
//	<prefix>.<project>.<type>
//
// where type is created, updated or deleted. Project names are sanitized to
// a single subject token. Publishing is fire and forget: a broker outage is
// logged and never fails the store operation that produced the event.
package events
