package lcd

// Message represents a two-line LCD message.
type Message struct {
	Line1 []byte
	Line2 []byte
}

// Send queues a message without blocking. It reports false if the channel
// is full and the message was dropped.
func Send(messages chan<- Message, line1, line2 string) bool {
	select {
	case messages <- Message{Line1: []byte(line1), Line2: []byte(line2)}:
		return true
	default:
		return false
	}
}

// Show clears the display and prints msg, one line per row. Lines longer
// than the display are truncated.
func (d *Device) Show(msg Message) error {
	if err := d.ClearDisplay(); err != nil {
		return err
	}
	if err := d.SetCursor(0, 0); err != nil {
		return err
	}

	// Truncate in-place, no allocation
	if err := d.Print(d.clip(msg.Line1)); err != nil {
		return err
	}
	if d.height < 2 {
		return nil
	}
	if err := d.SetCursor(0, 1); err != nil {
		return err
	}
	return d.Print(d.clip(msg.Line2))
}

func (d *Device) clip(line []byte) []byte {
	if len(line) > int(d.width) {
		return line[:d.width]
	}
	return line
}
