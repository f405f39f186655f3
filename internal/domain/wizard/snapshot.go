package wizard

import "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"

// StepView describes a step for rendering.
type StepView struct {
	ID             string   `json:"id"`
	RequiredFields []string `json:"required_fields"`
	OptionalFields []string `json:"optional_fields"`
	Optional       bool     `json:"optional"`
	AcceptsUploads bool     `json:"accepts_uploads"`
}

// AttachmentView describes a selected file without its content.
type AttachmentView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

// Snapshot is a consistent copy of the wizard state.
type Snapshot struct {
	Flow        string            `json:"flow"`
	Phase       workflow.State    `json:"phase"`
	CurrentStep int               `json:"current_step"`
	StepID      string            `json:"step_id"`
	Steps       []StepView        `json:"steps"`
	Data        Fields            `json:"data"`
	Draft       Fields            `json:"draft,omitempty"`
	Errors      FieldErrors       `json:"errors,omitempty"`
	Attachments []AttachmentView  `json:"attachments"`
	Failure     *Failure          `json:"failure,omitempty"`
	Result      *SubmissionResult `json:"result,omitempty"`
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	steps := make([]StepView, len(w.steps))
	for i, s := range w.steps {
		steps[i] = StepView{
			ID:             s.ID,
			RequiredFields: append([]string(nil), s.RequiredFields...),
			OptionalFields: append([]string(nil), s.Fields...),
			Optional:       s.Optional,
			AcceptsUploads: s.AcceptsUploads,
		}
	}

	list := w.attachments.List()
	attachments := make([]AttachmentView, len(list))
	for i, a := range list {
		attachments[i] = AttachmentView{ID: a.ID, Name: a.Name, SizeBytes: a.SizeBytes, MimeType: a.MimeType}
	}

	snap := Snapshot{
		Flow:        w.flow,
		Phase:       w.phase.State(),
		CurrentStep: w.index,
		StepID:      w.steps[w.index].ID,
		Steps:       steps,
		Data:        w.data.Clone(),
		Draft:       w.draft.Clone(),
		Errors:      cloneErrors(w.errors),
		Attachments: attachments,
	}
	if w.failure != nil {
		f := *w.failure
		snap.Failure = &f
	}
	if w.completion != nil {
		r := w.completion.Result()
		snap.Result = &r
	}
	return snap
}
