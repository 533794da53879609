package orchestrator

// Tracker is how an extractor reports progress and learns about an abort.
type Tracker struct {
	o *Orchestrator
}

// Aborted reports whether the sync was aborted. Extractors check it between
// keywords.
func (t *Tracker) Aborted() bool { return t.o.Aborted() }

// Searching reports the start of keyword index (0-based).
func (t *Tracker) Searching(index int, keyword string) {
	t.o.update(func(p *Progress) {
		p.Status = StatusSearching
		p.CurrentKeyword = keyword
		p.CurrentKeywordIndex = index
		p.Message = "Searching for \"" + keyword + "\"..."
	})
}

// Extracting reports that results of the current keyword are being read.
func (t *Tracker) Extracting(message string) {
	t.o.update(func(p *Progress) {
		p.Status = StatusExtracting
		p.Message = message
	})
}

// Submitting reports running counts while leads are being submitted.
func (t *Tracker) Submitting(found, submitted int) {
	t.o.update(func(p *Progress) {
		p.Status = StatusSubmitting
		p.LeadsFound = found
		p.LeadsSubmitted = submitted
		p.Message = "Submitting leads..."
	})
}
