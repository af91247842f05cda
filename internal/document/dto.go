package document

import (
	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/core/common/validation"
)

type CreateDocumentDTO struct {
	Title                string  `json:"title"`
	Type                 string  `json:"type"`
	Content              string  `json:"content,omitempty"`
	RelatedApplicationID *string `json:"related_application_id,omitempty"`
}

func (dto CreateDocumentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(200)
	v.Field("type", dto.Type).Required().OneOf(Types...)
	return v.Validate()
}

type UpdateDocumentDTO struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (dto UpdateDocumentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", *dto.Title).Required().MaxLength(200)
	}
	return v.Validate()
}

type AttachmentDTO struct {
	URL string `json:"url"`
}

func (dto AttachmentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("url", dto.URL).Required()
	return v.Validate()
}

type ReviewDTO struct {
	Comment string `json:"comment"`
}
