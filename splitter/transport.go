package splitter

// Transport puts one encoded report on the wire. Implementations own the
// actual delivery (USB gadget, network stream, ...); the splitter only hands
// them a fixed-size buffer tagged with its report ID and logs failures. A
// failed transmit never rolls back report state: the in-memory state stays
// authoritative and is re-sent on the next mutation or keepalive tick.
type Transport interface {
	Transmit(reportID uint8, report []byte) error
}

// TransportFunc adapts a plain function to the Transport interface.
type TransportFunc func(reportID uint8, report []byte) error

func (f TransportFunc) Transmit(reportID uint8, report []byte) error {
	return f(reportID, report)
}
