package domain

// NotificationKind is the category of a host write notification.
type NotificationKind string

const (
	KindHash    NotificationKind = "hash"
	KindGeneric NotificationKind = "generic"
	KindValue   NotificationKind = "value"
)

// Hash event names, as emitted by the host for hash mutations.
const (
	EventHSet         = "hset"
	EventHSetNX       = "hsetnx"
	EventHIncrBy      = "hincrby"
	EventHIncrByFloat = "hincrbyfloat"
	EventHDel         = "hdel"
	EventDel          = "del"
	EventExpired      = "expired"
	EventFlush        = "flush"
)

// Notification is a single write notification delivered by the host.
type Notification struct {
	Kind  NotificationKind `json:"kind"`
	Event string           `json:"event"`
	Key   string           `json:"key"`
}

// IsHashWrite reports whether the notification signals a field write on a
// hash, i.e. an entity that exists after the mutation.
func (n Notification) IsHashWrite() bool {
	if n.Kind != KindHash {
		return false
	}
	switch n.Event {
	case EventHSet, EventHSetNX, EventHIncrBy, EventHIncrByFloat:
		return true
	}
	return false
}

// KindOf classifies a host event name.
func KindOf(event string) NotificationKind {
	switch event {
	case EventHSet, EventHSetNX, EventHIncrBy, EventHIncrByFloat, EventHDel:
		return KindHash
	case "set", "setrange", "append", "incrby", "incrbyfloat":
		return KindValue
	}
	return KindGeneric
}
