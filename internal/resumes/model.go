package resumes

import "time"

// Record is a saved tailored resume. The files themselves live in object
// storage; a record only points at them.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ResumeName     string    `json:"resume_name"`
	OriginalPDFURL *string   `json:"original_pdf_url"`
	TailoredPDFURL string    `json:"tailored_pdf_url"`
	TailoredTexURL string    `json:"tailored_tex_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateInput carries the fields a caller may set.
type CreateInput struct {
	ResumeName     string  `json:"resume_name"`
	OriginalPDFURL *string `json:"original_pdf_url"`
	TailoredPDFURL string  `json:"tailored_pdf_url"`
	TailoredTexURL string  `json:"tailored_tex_url"`
}
