package pipeline

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/atelierdevis/devis-gateway/internal/model"
)

// ErrMalformedRequest is the only fatal pipeline error: the body or its
// content type could not be parsed, so no step has run and nothing must.
var ErrMalformedRequest = errors.New("malformed request")

// parseSubmission decodes a multipart body into the transient submission.
// Text fields are collected by name; file parts are buffered in memory up to
// the attachment cap, extras are dropped.
func parseSubmission(contentType string, body io.Reader) (model.Submission, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return model.Submission{}, fmt.Errorf("%w: content type %q", ErrMalformedRequest, contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return model.Submission{}, fmt.Errorf("%w: missing boundary", ErrMalformedRequest)
	}

	var sub model.Submission
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Submission{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}

		if part.FileName() == "" && part.FormName() != "" {
			value, err := io.ReadAll(part)
			if err != nil {
				return model.Submission{}, fmt.Errorf("%w: read field %s: %v", ErrMalformedRequest, part.FormName(), err)
			}
			setField(&sub, part.FormName(), string(value))
			continue
		}

		if part.FileName() != "" {
			content, err := io.ReadAll(part)
			if err != nil {
				return model.Submission{}, fmt.Errorf("%w: read file %s: %v", ErrMalformedRequest, part.FileName(), err)
			}
			if len(sub.Files) >= model.MaxSubmissionFiles {
				continue
			}
			sub.Files = append(sub.Files, model.File{
				Filename: safeFilename(part.FileName()),
				MimeType: resolveMimeType(part.Header.Get("Content-Type"), part.FileName()),
				Content:  content,
			})
		}
	}
	return sub, nil
}

func setField(sub *model.Submission, name, value string) {
	switch name {
	case "name":
		sub.Name = value
	case "email":
		sub.Email = value
	case "address":
		sub.Address = value
	case "zip_code":
		sub.ZipCode = value
	case "city":
		sub.City = value
	case "message":
		sub.Message = value
	}
}

func safeFilename(name string) string {
	if name == "" {
		return "unnamed_file"
	}
	return name
}

// resolveMimeType falls back to the filename extension, then to a generic
// binary type.
func resolveMimeType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
