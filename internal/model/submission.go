package model

// MaxSubmissionFiles caps attachments per quote submission.
const MaxSubmissionFiles = 5

// File is one decoded multipart attachment, held in memory for the lifetime
// of a single request.
type File struct {
	Filename string
	MimeType string
	Content  []byte
}

// Submission is the transient quote form payload. All text fields are
// optional strings; blank means not provided.
type Submission struct {
	Name    string
	Email   string
	Address string
	ZipCode string
	City    string
	Message string
	Files   []File
}
