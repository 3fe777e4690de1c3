package payanyway

import "fmt"

// Ack is the two-line plaintext acknowledgement the gateway parses. It reads
// the body, never the HTTP status, so both outcomes travel as 200 OK.
type Ack struct {
	OK     bool
	Reason string
}

func SuccessAck(reason string) Ack {
	return Ack{OK: true, Reason: reason}
}

func FailAck(reason string) Ack {
	return Ack{OK: false, Reason: reason}
}

// Body renders the exact wire format: first line SUCCESS or FAIL, CRLF,
// then "<system name>. <reason>". No HTML escaping, UTF-8.
func (a Ack) Body(systemName string) string {
	status := "FAIL"
	if a.OK {
		status = "SUCCESS"
	}
	return fmt.Sprintf("%s\r\n%s. %s", status, systemName, a.Reason)
}
