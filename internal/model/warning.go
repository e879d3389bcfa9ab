package model

type WarningKind string

const (
	WarningUpload  WarningKind = "upload_failed"
	WarningPersist WarningKind = "persist_failed"
	WarningNotify  WarningKind = "notify_failed"
)

// Warning is a non-fatal step failure. The pipeline accumulates warnings and
// surfaces them in the response; it never aborts because of one.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return w.Message
}

// Messages flattens warnings for the HTTP response and the notification mail.
func Messages(warnings []Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.Message
	}
	return out
}
