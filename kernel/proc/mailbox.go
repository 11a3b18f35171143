package proc

import "github.com/Jithub-4pf/NanOS/kernel"

// QueueCap and PayloadMax bound every task's mailbox, matching the
// original's MSG_QUEUE_SIZE/MSG_DATA_SIZE.
const (
	QueueCap   = 8
	PayloadMax = 32
)

// Message is one entry of a mailbox.
type Message struct {
	FromPID uint32
	Len     uint32
	Data    [PayloadMax]byte
}

// Mailbox is a fixed-capacity ring buffer of Messages belonging to one
// Task. count tracks occupancy directly rather than distinguishing
// full/empty by head==tail, which would otherwise waste a slot and cap
// real capacity at QueueCap-1.
type Mailbox struct {
	queue      [QueueCap]Message
	head, tail int
	count      int
}

func (m *Mailbox) init() {
	m.head = 0
	m.tail = 0
	m.count = 0
}

var errMailboxFull = &kernel.Error{Module: "proc", Message: "destination mailbox is full"}

// Send enqueues a message into dest's mailbox on behalf of from, truncating
// payloads longer than PayloadMax. If dest was Blocked waiting on Receive,
// it is woken. Returns errMailboxFull if dest's queue has no room.
func Send(s *Scheduler, from, dest *Task, data []byte) *kernel.Error {
	if dest.mailbox.count == QueueCap {
		return errMailboxFull
	}

	n := uint32(len(data))
	if n > PayloadMax {
		n = PayloadMax
	}

	m := &dest.mailbox.queue[dest.mailbox.head]
	m.FromPID = from.PID
	m.Len = n
	copy(m.Data[:n], data[:n])
	dest.mailbox.head = (dest.mailbox.head + 1) % QueueCap
	dest.mailbox.count++

	if dest.State == StateBlocked {
		dest.State = StateReady
	}
	return nil
}

// Receive blocks the calling task until a message arrives in its mailbox,
// then dequeues and returns it. This blocks — unlike the original's
// non-blocking receive_message — so that Send's wake-on-deliver path is
// meaningful: a receiver with an empty queue sleeps until Send rouses it.
func Receive(s *Scheduler, self *Task) Message {
	for self.mailbox.count == 0 {
		self.State = StateBlocked
		s.Yield()
	}
	m := self.mailbox.queue[self.mailbox.tail]
	self.mailbox.tail = (self.mailbox.tail + 1) % QueueCap
	self.mailbox.count--
	return m
}

// HasMessage reports whether self has at least one undelivered message,
// without dequeuing it.
func HasMessage(self *Task) bool {
	return self.mailbox.count > 0
}
