package server

import "sync"

type pendingErrors struct {
	form     string
	messages map[string][]string
}

// feedback keeps the field messages of a failed action until the page the
// request redirects to is rendered. One entry per session; a newer failure
// replaces an older one.
type feedback struct {
	mu      sync.Mutex
	pending map[string]pendingErrors
}

func newFeedback() *feedback {
	return &feedback{pending: make(map[string]pendingErrors)}
}

func (f *feedback) put(sessionID, formCode string, messages map[string][]string) {
	if sessionID == "" || len(messages) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[sessionID] = pendingErrors{form: formCode, messages: messages}
}

// take returns and clears the pending messages. With a non-empty formCode,
// messages recorded for another form are dropped.
func (f *feedback) take(sessionID, formCode string) map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.pending[sessionID]
	if !ok {
		return nil
	}
	delete(f.pending, sessionID)
	if formCode != "" && entry.form != formCode {
		return nil
	}
	return entry.messages
}
