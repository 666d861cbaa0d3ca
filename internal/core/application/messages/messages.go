// Package messages defines the closed set of messages that flow through the
// message bus. A message is either a Command (an intent to change state,
// routed to exactly one handler) or an Event (a fact that already happened,
// routed to zero or more handlers). Both are immutable value records.
//
// The Command and Event interfaces carry unexported marker methods, so the
// set of variants is closed: nothing outside this package can add a third
// kind of message, and the bus can switch on the two interfaces without
// ad-hoc type inspection.
package messages

// Message is the common interface of Commands and Events. Name returns the
// stable message name used as the registry key and the publish topic suffix.
type Message interface {
	Name() string
	isMessage()
}

// Command is an intent to change state. A command has exactly one handler
// and its failure propagates to the caller of the bus.
type Command interface {
	Message
	isCommand()
}

// Event is a fact that already happened. An event may have any number of
// handlers; each handler failure is isolated.
type Event interface {
	Message
	isEvent()
}

// commandMarker is embedded by every concrete command.
type commandMarker struct{}

func (commandMarker) isMessage() {}
func (commandMarker) isCommand() {}

// eventMarker is embedded by every concrete event.
type eventMarker struct{}

func (eventMarker) isMessage() {}
func (eventMarker) isEvent()   {}
