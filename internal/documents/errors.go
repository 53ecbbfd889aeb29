package documents

import "fmt"

// ServiceError is returned when the template catalog cannot be read
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("template service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// GenerationError is returned when a document cannot be rendered or stored
type GenerationError struct {
	TemplateID string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate document from %s: %v", e.TemplateID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// DownloadError is returned when a blank template cannot be produced
type DownloadError struct {
	TemplateID string
	Err        error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download template %s: %v", e.TemplateID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
