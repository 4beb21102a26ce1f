package mailbox

// Retention decides which history entries are kept after each append.
// It is called with the mailbox lock held and must not call back into the
// mailbox.
type Retention interface {
	Trim(entries []Message) []Message
}

// RetentionFunc adapts a function to the Retention interface
type RetentionFunc func(entries []Message) []Message

// Trim implements Retention
func (f RetentionFunc) Trim(entries []Message) []Message {
	return f(entries)
}

// KeepAll retains every entry for the lifetime of the mailbox. This is the
// default and keeps History length equal to the number of sends.
func KeepAll() Retention {
	return RetentionFunc(func(entries []Message) []Message {
		return entries
	})
}

// KeepLast retains only the most recent n entries. Values below 1 behave
// like KeepAll.
func KeepLast(n int) Retention {
	if n < 1 {
		return KeepAll()
	}
	return RetentionFunc(func(entries []Message) []Message {
		if len(entries) <= n {
			return entries
		}
		return entries[len(entries)-n:]
	})
}
